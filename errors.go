package cloudhatch

import "errors"

var (
	// ErrInvalidCredentials covers unknown usernames and wrong passwords
	// alike, so callers cannot distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned when the account is hard-locked or
	// inside a lockout window. Transport layers should surface it as the
	// same generic unauthorized as ErrInvalidCredentials.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountUnverified is returned when token issuance is refused
	// because the account's email is unconfirmed.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrUserNotFound is returned by UserProvider lookups that miss.
	ErrUserNotFound = errors.New("user not found")
	// ErrRefreshInvalid covers missing, rotated, expired, and over-age
	// refresh tokens.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshReuse is returned when a superseded refresh token is
	// replayed while reuse detection is enabled; by then every session of
	// the owning user has been revoked.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrOriginRejected is returned when a request's declared host does
	// not match the configured trusted origin. Server-side only; never
	// echo the detail to clients.
	ErrOriginRejected = errors.New("origin rejected")
	// ErrProviderUnavailable wraps transient backend failures, from the
	// UserProvider or the refresh-token store.
	ErrProviderUnavailable = errors.New("user provider unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on a
	// partially constructed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

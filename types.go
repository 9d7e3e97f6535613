package cloudhatch

import (
	"context"
	"time"
)

// IssuerLocal marks accounts that authenticate with a password held by
// this deployment rather than a federated identity provider.
const IssuerLocal = "local"

// User is the account record exchanged with [UserProvider]. For accounts
// that can authenticate by password, PasswordHash is set and Issuer is
// "local"; federated accounts carry an ExternalID and a provider issuer
// and never verify a password here.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Issuer       string
	Roles        []string
	ExternalID   string

	CreatedAt time.Time
	LastLogin time.Time

	IsLocked         bool
	LockedUntil      time.Time
	FailedLoginCount int

	EmailConfirmed bool

	// Short-lived challenge fields used by adjacent flows (email
	// confirmation, password reset). The engine round-trips them
	// untouched.
	EmailConfirmationToken  string
	EmailConfirmationExpiry time.Time
	ResetPasswordToken      string
	ResetPasswordExpiry     time.Time
}

// IDP returns the user's normalized identity-provider tag: "local" for
// password accounts, otherwise the lowercased issuer.
func (u *User) IDP() string {
	return normalizeIDP(u.Issuer)
}

// FederatedClaim is an already-validated identity assertion from an
// upstream provider. Signature and issuer trust were checked before this
// core sees it; the engine only maps it onto a local account.
type FederatedClaim struct {
	ExternalID string
	Issuer     string
	Email      string
	Username   string
}

// TokenPair is the result of every issuance path: a signed access token, an
// opaque refresh token, and the access token's lifetime in seconds. It is
// never persisted.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	User         User
}

// UserProvider is the credential-store contract callers must implement.
// Username lookups must be case-insensitive. Lookups that miss return
// [ErrUserNotFound]; any other error is treated as a transient backend
// failure and propagated as a server error.
type UserProvider interface {
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByExternalID(ctx context.Context, externalID, issuer string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, user User) error
}

// Logger receives non-fatal engine anomalies such as reuse detections and
// origin rejections. A nil logger disables these warnings.
type Logger interface {
	Warn(msg string, args ...any)
}

package cloudhatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IulianH/CloudHatch-sub000/cookie"
	"github.com/IulianH/CloudHatch-sub000/jwt"
	"github.com/IulianH/CloudHatch-sub000/password"
	"github.com/IulianH/CloudHatch-sub000/refresh"
)

// Engine is the credential and session lifecycle core. Construct it through
// [Builder]; a built engine is immutable and safe for concurrent use.
type Engine struct {
	config Config

	userProvider UserProvider
	rotator      *refresh.Rotator
	jwtManager   *jwt.Manager
	passwordHash *password.Hasher
	origin       *OriginGuard
	cookies      *cookie.Codec
	audit        *auditDispatcher
	metrics      *Metrics
	logger       Logger
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	e.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// OriginGuard exposes the configured CSRF gate for cookie endpoints.
func (e *Engine) OriginGuard() *OriginGuard {
	return e.origin
}

// Refresh rotates the presented refresh token and mints a fresh token pair
// for its owner. Already-rotated, expired, and unknown tokens all fail with
// ErrRefreshInvalid; a detected replay of a rotated token revokes every
// session of the owning user and fails with ErrRefreshReuse.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	rec, err := e.rotator.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, refresh.ErrReuseDetected) {
			e.metrics.Inc(MetricRefreshReuseDetected)
			e.warn("refresh token reuse detected, all user sessions revoked")
			e.emit(ctx, AuditEvent{
				EventType: AuditRefreshReuse,
				Error:     "rotated refresh token replayed",
			})
			return nil, ErrRefreshReuse
		}
		if errors.Is(err, refresh.ErrStoreUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		e.metrics.Inc(MetricRefreshFailure)
		e.emit(ctx, AuditEvent{
			EventType: AuditRefreshFailure,
			Error:     "invalid refresh token",
		})
		return nil, ErrRefreshInvalid
	}

	user, err := e.userProvider.GetUserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// token chain outlived its account; tear it down
			_ = e.rotator.Revoke(ctx, rec.Token, true)
			e.metrics.Inc(MetricRefreshFailure)
			return nil, ErrRefreshInvalid
		}
		// transient lookup failure: leave the user's other chains
		// untouched and let the caller retry
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if locked, _ := lockState(user, time.Now().UTC()); locked {
		_ = e.rotator.Revoke(ctx, rec.Token, true)
		e.metrics.Inc(MetricRefreshFailure)
		return nil, ErrAccountLocked
	}

	pair, err := e.mintPair(user, rec)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emit(ctx, AuditEvent{
		EventType: AuditRefreshSuccess,
		UserID:    user.ID,
		SessionID: rec.SessionID,
		Success:   true,
	})
	return pair, nil
}

// Logout revokes the presented refresh token. With all set, every session
// belonging to the token's owner is revoked. Unknown tokens succeed; logout
// is idempotent.
func (e *Engine) Logout(ctx context.Context, refreshToken string, all bool) error {
	if err := e.rotator.Revoke(ctx, refreshToken, all); err != nil {
		if errors.Is(err, refresh.ErrTokenNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if all {
		e.metrics.Inc(MetricLogoutAll)
		e.emit(ctx, AuditEvent{EventType: AuditLogoutAll, Success: true})
	} else {
		e.metrics.Inc(MetricLogout)
		e.emit(ctx, AuditEvent{EventType: AuditLogout, Success: true})
	}
	return nil
}

// ValidateAccess parses and verifies an access token, returning its claims.
func (e *Engine) ValidateAccess(tokenString string) (*jwt.AccessClaims, error) {
	claims, err := e.jwtManager.ParseAccess(tokenString)
	if err != nil {
		e.metrics.Inc(MetricValidateFailure)
		return nil, err
	}
	e.metrics.Inc(MetricValidateSuccess)
	return claims, nil
}

// issueTokenPair starts a new refresh chain for the user and signs a
// matching access token.
func (e *Engine) issueTokenPair(ctx context.Context, user User) (*TokenPair, error) {
	rec, err := e.rotator.Generate(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return e.mintPair(user, rec)
}

func (e *Engine) mintPair(user User, rec *refresh.Record) (*TokenPair, error) {
	access, err := e.jwtManager.CreateAccess(user.ID, user.IDP(), user.Roles)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: rec.Token,
		ExpiresIn:    int64(e.jwtManager.AccessTTL().Seconds()),
		User:         user,
	}, nil
}

// CheckOrigin gates a cookie-based request on the trusted origin. Failures
// are counted and audited; the returned error wraps ErrOriginRejected and
// is for server-side use only.
func (e *Engine) CheckOrigin(r *http.Request) error {
	if err := e.origin.CheckRequest(r); err != nil {
		e.metrics.Inc(MetricOriginRejected)
		e.warn("request rejected by origin guard")
		e.emit(r.Context(), AuditEvent{
			EventType: AuditOriginRejected,
			Error:     err.Error(),
		})
		return err
	}
	return nil
}

// BakeRefreshCookie wraps a refresh token in the encrypted browser cookie.
func (e *Engine) BakeRefreshCookie(refreshToken string) (*http.Cookie, error) {
	if e.cookies == nil {
		return nil, ErrEngineNotReady
	}
	return e.cookies.Bake(refreshToken)
}

// ReadRefreshCookie extracts and decrypts the refresh token from a browser
// request. Any failure, including a missing cookie, reports
// [cookie.ErrCookieInvalid].
func (e *Engine) ReadRefreshCookie(r *http.Request) (string, error) {
	if e.cookies == nil {
		return "", ErrEngineNotReady
	}
	return e.cookies.Read(r)
}

// ExpireRefreshCookie returns a clearing cookie for logout responses.
func (e *Engine) ExpireRefreshCookie() (*http.Cookie, error) {
	if e.cookies == nil {
		return nil, ErrEngineNotReady
	}
	return e.cookies.Expire(), nil
}

func (e *Engine) emit(ctx context.Context, event AuditEvent) {
	e.audit.Emit(ctx, event)
}

func (e *Engine) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

// lockState reports whether the account is currently locked and whether the
// lock is the permanent kind.
func lockState(u User, now time.Time) (locked, hard bool) {
	if u.IsLocked {
		return true, true
	}
	if !u.LockedUntil.IsZero() && now.Before(u.LockedUntil) {
		return true, false
	}
	return false, false
}

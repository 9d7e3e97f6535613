package cloudhatch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Login authenticates a password account and issues a token pair. Unknown
// usernames and wrong passwords are indistinguishable to the caller; both
// return ErrInvalidCredentials. Failed attempts advance the lockout
// counters described on [LockoutConfig].
func (e *Engine) Login(ctx context.Context, username, plainPassword string) (*TokenPair, error) {
	user, err := e.userProvider.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metrics.Inc(MetricLoginFailure)
			e.emit(ctx, AuditEvent{
				EventType: AuditLoginFailure,
				Username:  username,
				Error:     "unknown username",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	now := time.Now().UTC()

	if locked, _ := lockState(user, now); locked {
		e.metrics.Inc(MetricLoginLocked)
		e.emit(ctx, AuditEvent{
			EventType: AuditLoginLocked,
			UserID:    user.ID,
			Username:  user.Username,
		})
		return nil, ErrAccountLocked
	}

	if user.Issuer != "" && user.Issuer != IssuerLocal {
		// federated accounts never verify a password
		e.metrics.Inc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	ok, err := e.passwordHash.Verify(plainPassword, user.PasswordHash)
	if err != nil {
		// a stored hash that cannot be parsed is a server-side fault;
		// it must not advance the caller's lockout counters
		e.warn("stored password hash unreadable", "user_id", user.ID)
		return nil, fmt.Errorf("verify stored password hash: %w", err)
	}
	if !ok {
		return nil, e.recordFailedAttempt(ctx, user, now)
	}

	if e.config.Account.RequireConfirmedEmail && !user.EmailConfirmed {
		e.metrics.Inc(MetricLoginFailure)
		e.emit(ctx, AuditEvent{
			EventType: AuditLoginFailure,
			UserID:    user.ID,
			Username:  user.Username,
			Error:     "email not confirmed",
		})
		return nil, ErrAccountUnverified
	}

	user.FailedLoginCount = 0
	user.LockedUntil = time.Time{}
	user.LastLogin = now
	if err := e.userProvider.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	pair, err := e.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emit(ctx, AuditEvent{
		EventType: AuditLoginSuccess,
		UserID:    user.ID,
		Username:  user.Username,
		IDP:       user.IDP(),
		Success:   true,
	})
	return pair, nil
}

// LoginFederated issues a token pair for an externally verified identity.
// The upstream OAuth/OIDC exchange must already have validated the claim's
// signature and issuer trust; this path never touches passwords, but the
// same lock-state gate as Login applies, timed lockouts included.
func (e *Engine) LoginFederated(ctx context.Context, claim FederatedClaim) (*TokenPair, error) {
	if claim.ExternalID == "" || claim.Issuer == "" || claim.Issuer == IssuerLocal {
		return nil, ErrInvalidCredentials
	}

	user, err := e.userProvider.GetUserByExternalID(ctx, claim.ExternalID, claim.Issuer)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metrics.Inc(MetricLoginFailure)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	now := time.Now().UTC()

	if locked, _ := lockState(user, now); locked {
		e.metrics.Inc(MetricLoginLocked)
		e.emit(ctx, AuditEvent{
			EventType: AuditLoginLocked,
			UserID:    user.ID,
			Username:  user.Username,
		})
		return nil, ErrAccountLocked
	}

	// an elapsed lock window leaves its counters behind; a verified
	// upstream assertion resets them
	if user.FailedLoginCount > 0 || !user.LockedUntil.IsZero() {
		user.LockedUntil = time.Time{}
		user.FailedLoginCount = 0
		e.emit(ctx, AuditEvent{
			EventType: AuditFederatedUnlock,
			UserID:    user.ID,
			IDP:       normalizeIDP(claim.Issuer),
			Success:   true,
		})
	}

	user.LastLogin = now
	if err := e.userProvider.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	pair, err := e.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricFederatedLogin)
	e.emit(ctx, AuditEvent{
		EventType: AuditFederatedLogin,
		UserID:    user.ID,
		Username:  user.Username,
		IDP:       user.IDP(),
		Success:   true,
	})
	return pair, nil
}

// recordFailedAttempt advances the lockout counters after a password
// mismatch and persists the user. The caller always fails closed with
// ErrInvalidCredentials unless the attempt tripped a lock.
func (e *Engine) recordFailedAttempt(ctx context.Context, user User, now time.Time) error {
	user.FailedLoginCount++

	lockout := e.config.Lockout
	tripped := false

	if lockout.HardThreshold > 0 && user.FailedLoginCount >= lockout.HardThreshold {
		user.IsLocked = true
		tripped = true
	} else if lockout.SoftThreshold > 0 && user.FailedLoginCount >= lockout.SoftThreshold {
		user.LockedUntil = now.Add(lockout.LockDuration)
		tripped = true
	}

	if err := e.userProvider.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	e.metrics.Inc(MetricLoginFailure)
	e.emit(ctx, AuditEvent{
		EventType: AuditLoginFailure,
		UserID:    user.ID,
		Username:  user.Username,
		Error:     "password mismatch",
	})

	if tripped {
		e.metrics.Inc(MetricAccountLocked)
		e.warn("account locked after repeated failed logins", "user_id", user.ID)
		e.emit(ctx, AuditEvent{
			EventType: AuditAccountLocked,
			UserID:    user.ID,
			Username:  user.Username,
			Metadata: map[string]string{
				"failed_attempts": fmt.Sprintf("%d", user.FailedLoginCount),
			},
		})
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}

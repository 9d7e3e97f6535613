package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrReuseDetected is returned when a superseded token is presented while
// reuse detection is enabled. By the time the caller sees it, every record
// belonging to the owning user has been revoked.
var ErrReuseDetected = errors.New("refresh token reuse detected")

// Config controls rotation policy.
type Config struct {
	// TTL is the per-record lifetime. Each rotation grants a fresh TTL.
	TTL time.Duration

	// SessionMaxAge caps the total age of a chain regardless of activity,
	// measured from SessionCreatedAt. Zero means unbounded.
	SessionMaxAge time.Duration

	// DetectReuse retains superseded records in a revoked state so that a
	// replayed token can be recognized and the whole user revoked, instead
	// of the replay failing as a plain lookup miss.
	DetectReuse bool
}

// Rotator owns refresh-token chains end to end: issuance, single-use
// rotation, expiry, session-age ceiling, and revocation.
type Rotator struct {
	store  Store
	config Config
	now    func() time.Time
}

// NewRotator validates cfg and returns a Rotator over store.
func NewRotator(store Store, cfg Config) (*Rotator, error) {
	if store == nil {
		return nil, errors.New("refresh: store is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("refresh: TTL must be positive")
	}
	if cfg.SessionMaxAge < 0 {
		return nil, errors.New("refresh: SessionMaxAge must not be negative")
	}
	return &Rotator{store: store, config: cfg, now: time.Now}, nil
}

// Generate starts a new chain for userID: fresh session identity, index 1,
// full TTL. It persists the record and returns it.
func (r *Rotator) Generate(ctx context.Context, userID string) (*Record, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	now := r.now()
	rec := &Record{
		Token:            token,
		UserID:           userID,
		SessionID:        uuid.NewString(),
		Index:            1,
		SessionCreatedAt: now,
		CreatedAt:        now,
		ExpiresAt:        now.Add(r.config.TTL),
	}
	if err := r.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Refresh rotates the chain position identified by token. On success it
// returns the successor record; the caller re-issues an access token from
// its UserID. Missing, rotated, expired, and over-age tokens fail with
// ErrTokenNotFound; a detected replay fails with ErrReuseDetected after
// revoking the owning user's records.
func (r *Rotator) Refresh(ctx context.Context, token string) (*Record, error) {
	rec, err := r.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	if rec.Compromised || rec.Revoked() {
		if !r.config.DetectReuse {
			return nil, ErrTokenNotFound
		}
		// Replay of a superseded token: the original was stolen or the
		// chain forked. Burn everything the user holds.
		if !rec.Compromised {
			_ = r.store.MarkCompromised(ctx, rec.Token)
		}
		if _, err := r.store.DeleteAllForUser(ctx, rec.UserID); err != nil {
			return nil, err
		}
		return nil, ErrReuseDetected
	}

	now := r.now()
	if rec.Expired(now) {
		_ = r.store.Delete(ctx, token)
		return nil, ErrTokenNotFound
	}
	if r.config.SessionMaxAge > 0 && now.Sub(rec.SessionCreatedAt) >= r.config.SessionMaxAge {
		_ = r.store.Delete(ctx, token)
		return nil, ErrTokenNotFound
	}

	nextToken, err := NewToken()
	if err != nil {
		return nil, err
	}
	next := &Record{
		Token:            nextToken,
		UserID:           rec.UserID,
		SessionID:        rec.SessionID,
		Index:            rec.Index + 1,
		SessionCreatedAt: rec.SessionCreatedAt,
		CreatedAt:        now,
		ExpiresAt:        now.Add(r.config.TTL),
	}
	if err := r.store.Rotate(ctx, token, next, r.config.DetectReuse); err != nil {
		// Losing the race to a concurrent refresh of the same token lands
		// here as ErrTokenNotFound: exactly one winner, never two.
		return nil, err
	}
	return next, nil
}

// Revoke removes the presented token (single-device logout) or, with all
// set, every record belonging to the token's owner (logout everywhere).
// Revoking an unknown token is a no-op.
func (r *Rotator) Revoke(ctx context.Context, token string, all bool) error {
	if !all {
		return r.store.Delete(ctx, token)
	}

	rec, err := r.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil
		}
		return err
	}
	_, err = r.store.DeleteAllForUser(ctx, rec.UserID)
	return err
}

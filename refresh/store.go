package refresh

import (
	"context"
	"errors"
)

var (
	// ErrTokenNotFound is returned when a token misses on lookup or when a
	// rotation loses the single-winner race. Already-rotated and
	// never-existed tokens are deliberately indistinguishable here.
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrStoreUnavailable wraps transport failures against the backing
	// store. The engine propagates these as server errors; retry policy
	// belongs to the store or transport layer, not this package.
	ErrStoreUnavailable = errors.New("refresh token store unavailable")
)

// Store persists refresh-token records keyed by token value. Get on a
// non-existent or already-deleted token returns ErrTokenNotFound, never a
// transport error. Delete is idempotent.
type Store interface {
	// Create persists a new record. The token value must be unique.
	Create(ctx context.Context, rec *Record) error

	// Get returns the record for token, including revoked records that an
	// adapter retains for reuse detection.
	Get(ctx context.Context, token string) (*Record, error)

	// Rotate atomically supersedes the live record for oldToken with next.
	// When keepRevoked is set the old record is retained with RevokedAt and
	// ReplacedByHash populated until its natural expiry; otherwise it is
	// removed. Returns ErrTokenNotFound if oldToken has no live record,
	// which is how a concurrent-rotation loser learns it lost.
	Rotate(ctx context.Context, oldToken string, next *Record, keepRevoked bool) error

	// MarkCompromised flags a record as terminally compromised.
	MarkCompromised(ctx context.Context, token string) error

	// Delete removes the record for token. Missing tokens are a no-op.
	Delete(ctx context.Context, token string) error

	// DeleteAllForUser removes every record belonging to userID and
	// returns how many were deleted.
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}

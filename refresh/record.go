package refresh

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

const tokenRawSize = 32

// Record is one position in a session's rotation chain. The Token value is
// also the store's primary key, which enforces at-most-one live record per
// token. SessionID and SessionCreatedAt are fixed at chain creation and
// never change across rotations; Index strictly increases along the chain.
type Record struct {
	Token            string    `json:"token"`
	UserID           string    `json:"user_id"`
	SessionID        string    `json:"session_id"`
	Index            int64     `json:"index"`
	SessionCreatedAt time.Time `json:"session_created_at"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	RevokedAt        time.Time `json:"revoked_at,omitzero"`
	ReplacedByHash   string    `json:"replaced_by_hash,omitempty"`
	Compromised      bool      `json:"compromised,omitempty"`
}

// Expired reports whether the record's lifetime has elapsed at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Revoked reports whether the record has been rotated away or explicitly
// revoked. Revoked records are terminal and never mint new access tokens.
func (r *Record) Revoked() bool {
	return !r.RevokedAt.IsZero()
}

func (r *Record) clone() *Record {
	out := *r
	return &out
}

// NewToken returns a fresh opaque refresh-token value: 32 cryptographically
// random bytes, base64url without padding.
func NewToken() (string, error) {
	raw := make([]byte, tokenRawSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// TokenHash returns the SHA-256 digest of a token value, base64url encoded.
// Superseded records carry the hash of their successor, never the successor
// itself, so a leaked store dump cannot replay live tokens.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

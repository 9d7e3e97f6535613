package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	minIterations = 10_000
	minSaltLength = 16
	minKeyLength  = 16

	// DefaultIterations is the PBKDF2 work factor applied to new hashes.
	DefaultIterations = 100_000
	// DefaultSaltLength is the random salt size in bytes for new hashes.
	DefaultSaltLength = 16
	// DefaultKeyLength is the derived key size in bytes for new hashes.
	DefaultKeyLength = 32
)

// ErrHashFormat is returned when a stored hash does not parse as the
// expected iterations.salt.hash triple. It signals corrupt or foreign
// data in the credential store, not a wrong password.
var ErrHashFormat = errors.New("invalid password hash format")

// Config controls the PBKDF2 parameters used for new hashes. Verification
// always honors the parameters recorded in the stored hash, so configs can
// be strengthened without invalidating existing credentials.
type Config struct {
	Iterations int
	SaltLength int
	KeyLength  int
}

// Hasher derives and verifies PBKDF2-HMAC-SHA256 password hashes.
type Hasher struct {
	config Config
}

type parsedHash struct {
	iterations int
	salt       []byte
	hash       []byte
}

// DefaultConfig returns the parameters applied to new hashes when the
// caller does not override them.
func DefaultConfig() Config {
	return Config{
		Iterations: DefaultIterations,
		SaltLength: DefaultSaltLength,
		KeyLength:  DefaultKeyLength,
	}
}

// NewHasher validates the config and returns a ready Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.Iterations < minIterations {
		return nil, fmt.Errorf("iterations must be at least %d", minIterations)
	}
	if cfg.SaltLength < minSaltLength {
		return nil, fmt.Errorf("salt length must be at least %d bytes", minSaltLength)
	}
	if cfg.KeyLength < minKeyLength {
		return nil, fmt.Errorf("key length must be at least %d bytes", minKeyLength)
	}
	return &Hasher{config: cfg}, nil
}

// Hash derives a new salted hash for password and encodes it as
// {iterations}.{salt-base64}.{hash-base64}.
func (h *Hasher) Hash(password string) (string, error) {
	// Password bytes are used exactly as provided (no Unicode normalization).
	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := pbkdf2.Key([]byte(password), salt, h.config.Iterations, h.config.KeyLength, sha256.New)

	return fmt.Sprintf(
		"%d.%s.%s",
		h.config.Iterations,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes PBKDF2 with the iteration count and salt recorded in
// encodedHash and compares the result in constant time. A malformed stored
// hash yields ErrHashFormat; a wrong password yields (false, nil).
func (h *Hasher) Verify(password string, encodedHash string) (bool, error) {
	parsed, err := parseHash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := pbkdf2.Key([]byte(password), parsed.salt, parsed.iterations, len(parsed.hash), sha256.New)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// NeedsRehash reports whether encodedHash was produced with a weaker work
// factor than the current config, so callers can re-hash after a
// successful verification.
func (h *Hasher) NeedsRehash(encodedHash string) (bool, error) {
	parsed, err := parseHash(encodedHash)
	if err != nil {
		return false, err
	}
	if parsed.iterations < h.config.Iterations {
		return true, nil
	}
	if len(parsed.hash) != h.config.KeyLength {
		return true, nil
	}
	return false, nil
}

func parseHash(encodedHash string) (*parsedHash, error) {
	parts := strings.Split(encodedHash, ".")
	if len(parts) != 3 {
		return nil, ErrHashFormat
	}

	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 {
		return nil, ErrHashFormat
	}

	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrHashFormat
	}
	if len(salt) < minSaltLength {
		return nil, ErrHashFormat
	}

	hash, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrHashFormat
	}
	if len(hash) == 0 {
		return nil, ErrHashFormat
	}

	return &parsedHash{
		iterations: iterations,
		salt:       salt,
		hash:       hash,
	}, nil
}

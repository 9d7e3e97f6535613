package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinKeyBytes is the minimum accepted HMAC signing key length.
const MinKeyBytes = 32

// Config holds the signing parameters for access tokens. A misconfigured
// Config is a deployment error and fails at NewManager, never per request.
type Config struct {
	// SigningKey is the pre-shared HS256 key, at least 32 bytes.
	SigningKey []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	// Leeway tolerated when validating exp/nbf on parse. Optional.
	Leeway time.Duration
}

// Manager signs and verifies HS256 access tokens.
type Manager struct {
	config Config
}

// AccessClaims is the claim set carried by issued access tokens: the
// registered claims plus the normalized identity-provider tag and the
// user's role names.
type AccessClaims struct {
	IDP   string   `json:"idp"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.SigningKey) < MinKeyBytes {
		return nil, fmt.Errorf("jwt: signing key must be at least %d bytes", MinKeyBytes)
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("jwt: invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

// CreateAccess signs an access token for the given subject. Each token
// carries a fresh random jti.
func (m *Manager) CreateAccess(subject, idp string, roles []string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		IDP:   idp,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.SigningKey)
}

// ParseAccess verifies signature, algorithm, expiry, issuer, and audience,
// and returns the token's claims.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.SigningKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

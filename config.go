package cloudhatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/IulianH/CloudHatch-sub000/cookie"
	"github.com/IulianH/CloudHatch-sub000/jwt"
	"github.com/IulianH/CloudHatch-sub000/password"
)

// Config is the engine's configuration tree. Populate it once, pass it to
// [Builder.WithConfig], and treat it as immutable afterwards. Build fails
// fast on an invalid config; nothing is silently defaulted at request time.
type Config struct {
	JWT      JWTConfig
	Refresh  RefreshConfig
	Lockout  LockoutConfig
	Password PasswordConfig
	Cookie   CookieConfig
	Origin   OriginConfig
	Account  AccountConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// JWTConfig configures access-token signing.
type JWTConfig struct {
	// SigningKey is the pre-shared HS256 key, at least 32 bytes,
	// supplied out-of-band.
	SigningKey []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	Leeway     time.Duration
}

// RefreshConfig configures the refresh-token chain.
type RefreshConfig struct {
	// TTL is each record's lifetime; every rotation grants a fresh TTL.
	TTL time.Duration
	// SessionMaxAge caps a chain's total age regardless of activity.
	// Zero means unbounded.
	SessionMaxAge time.Duration
	// DetectReuse retains rotated records so a replayed token revokes
	// the whole user instead of failing as a plain miss.
	DetectReuse bool
}

// LockoutConfig configures failed-login lockout. SoftThreshold failures
// start a timed lockout window; HardThreshold failures flip the account to
// locked until manual intervention.
type LockoutConfig struct {
	SoftThreshold int
	HardThreshold int
	LockDuration  time.Duration
}

// PasswordConfig configures the PBKDF2 work factor for new hashes.
type PasswordConfig struct {
	Iterations int
	SaltLength int
	KeyLength  int
}

// CookieConfig configures the browser refresh-token cookie. Leave Key
// empty to disable the cookie transport entirely; the engine's cookie
// helpers then refuse to operate.
type CookieConfig struct {
	// Key is the 32-byte AES-256-GCM key, supplied out-of-band.
	Key    []byte
	Name   string
	Path   string
	MaxAge time.Duration
}

// OriginConfig configures the CSRF origin gate for cookie endpoints.
type OriginConfig struct {
	// TrustedHost is the single host allowed to reach cookie-based
	// endpoints. Compared case-insensitively, no wildcards.
	TrustedHost string
}

// AccountConfig holds account-policy toggles.
type AccountConfig struct {
	// RequireConfirmedEmail refuses token issuance to accounts whose
	// email is unconfirmed.
	RequireConfirmedEmail bool
}

// AuditConfig configures the async audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the request path when
	// the buffer is saturated. Drops are counted.
	DropIfFull bool
}

// MetricsConfig enables the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL: 15 * time.Minute,
		},
		Refresh: RefreshConfig{
			TTL: 720 * time.Hour,
		},
		Lockout: LockoutConfig{
			SoftThreshold: 5,
			HardThreshold: 10,
			LockDuration:  15 * time.Minute,
		},
		Password: PasswordConfig{
			Iterations: password.DefaultIterations,
			SaltLength: password.DefaultSaltLength,
			KeyLength:  password.DefaultKeyLength,
		},
		Cookie: CookieConfig{
			Name:   "ch_refresh",
			Path:   "/",
			MaxAge: 720 * time.Hour,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func (c *Config) validate() error {
	if len(c.JWT.SigningKey) < jwt.MinKeyBytes {
		return fmt.Errorf("config: JWT signing key must be at least %d bytes", jwt.MinKeyBytes)
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("config: JWT access TTL must be positive")
	}
	if c.Refresh.TTL <= 0 {
		return errors.New("config: refresh TTL must be positive")
	}
	if c.Refresh.SessionMaxAge < 0 {
		return errors.New("config: refresh session max age must not be negative")
	}
	if c.Refresh.SessionMaxAge > 0 && c.Refresh.SessionMaxAge < c.Refresh.TTL {
		return errors.New("config: refresh session max age must not be shorter than the refresh TTL")
	}
	if c.Lockout.SoftThreshold < 0 || c.Lockout.HardThreshold < 0 {
		return errors.New("config: lockout thresholds must not be negative")
	}
	if c.Lockout.SoftThreshold > 0 && c.Lockout.LockDuration <= 0 {
		return errors.New("config: lockout duration must be positive when a soft threshold is set")
	}
	if c.Lockout.SoftThreshold > 0 && c.Lockout.HardThreshold > 0 &&
		c.Lockout.HardThreshold < c.Lockout.SoftThreshold {
		return errors.New("config: hard lockout threshold must not be below the soft threshold")
	}
	if len(c.Cookie.Key) > 0 {
		if len(c.Cookie.Key) != cookie.KeySize {
			return fmt.Errorf("config: cookie key must be exactly %d bytes", cookie.KeySize)
		}
		if c.Cookie.Name == "" {
			return errors.New("config: cookie name is required")
		}
		if c.Cookie.MaxAge <= 0 {
			return errors.New("config: cookie max age must be positive")
		}
		if c.Origin.TrustedHost == "" {
			return errors.New("config: trusted origin host is required when the cookie transport is enabled")
		}
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("config: audit buffer size must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SigningKey = append([]byte(nil), cfg.JWT.SigningKey...)
	out.Cookie.Key = append([]byte(nil), cfg.Cookie.Key...)
	return out
}

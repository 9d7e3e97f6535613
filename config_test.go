package cloudhatch

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.SigningKey = bytes.Repeat([]byte("k"), 32)
	return cfg
}

func TestConfigDefaultsAreValidWithKey(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults with a signing key should validate: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			"short signing key",
			func(c *Config) { c.JWT.SigningKey = []byte("short") },
			"signing key",
		},
		{
			"zero access TTL",
			func(c *Config) { c.JWT.AccessTTL = 0 },
			"access TTL",
		},
		{
			"zero refresh TTL",
			func(c *Config) { c.Refresh.TTL = 0 },
			"refresh TTL",
		},
		{
			"session max age below TTL",
			func(c *Config) {
				c.Refresh.TTL = 720 * time.Hour
				c.Refresh.SessionMaxAge = time.Hour
			},
			"session max age",
		},
		{
			"negative lockout threshold",
			func(c *Config) { c.Lockout.SoftThreshold = -1 },
			"lockout thresholds",
		},
		{
			"soft threshold without duration",
			func(c *Config) {
				c.Lockout.SoftThreshold = 3
				c.Lockout.LockDuration = 0
			},
			"lockout duration",
		},
		{
			"hard threshold below soft",
			func(c *Config) {
				c.Lockout.SoftThreshold = 5
				c.Lockout.HardThreshold = 3
			},
			"hard lockout threshold",
		},
		{
			"wrong cookie key size",
			func(c *Config) {
				c.Cookie.Key = []byte("too-short")
				c.Origin.TrustedHost = "app.example.com"
			},
			"cookie key",
		},
		{
			"cookie without trusted origin",
			func(c *Config) { c.Cookie.Key = bytes.Repeat([]byte("c"), 32) },
			"trusted origin",
		},
		{
			"audit enabled with zero buffer",
			func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			"audit buffer",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			err := cfg.validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestConfigCloneIsolatesKeys(t *testing.T) {
	cfg := validTestConfig()
	cfg.Cookie.Key = bytes.Repeat([]byte("c"), 32)
	cfg.Origin.TrustedHost = "app.example.com"

	cp := cloneConfig(cfg)
	cp.JWT.SigningKey[0] = 'X'
	cp.Cookie.Key[0] = 'X'

	if cfg.JWT.SigningKey[0] == 'X' {
		t.Fatal("clone shares the signing key slice")
	}
	if cfg.Cookie.Key[0] == 'X' {
		t.Fatal("clone shares the cookie key slice")
	}
}

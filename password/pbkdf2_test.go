package password

import (
	"errors"
	"strings"
	"testing"
)

func testConfig() Config {
	return Config{
		Iterations: 10_000, // keep tests fast; production default is 100k
		SaltLength: 16,
		KeyLength:  32,
	}
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewHasher(testConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	hash, err := hasher.Hash("admin1!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if !strings.HasPrefix(hash, "10000.") {
		t.Fatalf("unexpected hash prefix: %s", hash)
	}
	if parts := strings.Split(hash, "."); len(parts) != 3 {
		t.Fatalf("expected 3 dot-delimited parts, got %d", len(parts))
	}

	ok, err := hasher.Verify("admin1!", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification to succeed")
	}
}

func TestVerifyIsCaseSensitive(t *testing.T) {
	hasher, err := NewHasher(testConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	hash, err := hasher.Hash("admin1!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := hasher.Verify("Admin1!", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected case-variant password to fail verification")
	}
}

func TestVerifyHonorsStoredIterationCount(t *testing.T) {
	weak, err := NewHasher(Config{Iterations: 10_000, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	strong, err := NewHasher(Config{Iterations: 20_000, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	hash, err := weak.Hash("historical-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	// A hasher configured with a higher work factor must still verify
	// hashes produced under the old one.
	ok, err := strong.Verify("historical-password", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected verification against historical iteration count to succeed")
	}

	upgrade, err := strong.NeedsRehash(hash)
	if err != nil {
		t.Fatalf("NeedsRehash error: %v", err)
	}
	if !upgrade {
		t.Fatal("expected NeedsRehash to report true for weaker stored hash")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher, err := NewHasher(testConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	cases := []string{
		"",
		"not-a-hash",
		"10000.onlytwoparts",
		"10000.a.b.c",
		"abc.c2FsdHNhbHRzYWx0c2FsdA==.aGFzaA==",
		"10000.!!!.aGFzaA==",
		"10000.c2FsdHNhbHRzYWx0c2FsdA==.!!!",
	}
	for _, stored := range cases {
		if _, err := hasher.Verify("whatever", stored); !errors.Is(err, ErrHashFormat) {
			t.Fatalf("stored %q: expected ErrHashFormat, got %v", stored, err)
		}
	}
}

func TestHashesAreSalted(t *testing.T) {
	hasher, err := NewHasher(testConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	first, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	second, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	cases := []Config{
		{Iterations: 999, SaltLength: 16, KeyLength: 32},
		{Iterations: 10_000, SaltLength: 8, KeyLength: 32},
		{Iterations: 10_000, SaltLength: 16, KeyLength: 8},
	}
	for _, cfg := range cases {
		if _, err := NewHasher(cfg); err == nil {
			t.Fatalf("config %+v: expected error", cfg)
		}
	}
}

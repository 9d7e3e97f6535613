package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// KeySize is the required AEAD key length (AES-256).
	KeySize = 32

	nonceSize      = 12
	tagSize        = 16
	payloadVersion = 1
)

// ErrCookieInvalid is the single failure mode for every decode problem:
// malformed segments, bad base64, authentication failure, or a version
// mismatch. Callers must treat it exactly like an absent cookie so the
// cipher cannot be used as an oracle.
var ErrCookieInvalid = errors.New("invalid refresh cookie")

// Config controls the cookie's cryptography and browser attributes.
type Config struct {
	// Key is the 32-byte AES-256-GCM key, supplied out-of-band.
	Key []byte
	// Name is the cookie name presented to browsers.
	Name string
	// Path scopes the cookie; defaults to "/".
	Path string
	// MaxAge bounds the cookie's lifetime in the browser.
	MaxAge time.Duration
}

// Codec seals a refresh token into an opaque cookie value and reverses the
// operation. The wire format is nonce.tag.ciphertext with each segment
// standard-base64 encoded.
type Codec struct {
	aead   cipher.AEAD
	config Config
}

type payload struct {
	RefreshToken string `json:"rt"`
	Version      int    `json:"v"`
}

// NewCodec validates cfg and builds the AEAD cipher.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Key) != KeySize {
		return nil, fmt.Errorf("cookie: key must be %d bytes, got %d", KeySize, len(cfg.Key))
	}
	if cfg.Name == "" {
		return nil, errors.New("cookie: name is required")
	}
	if cfg.MaxAge <= 0 {
		return nil, errors.New("cookie: max age must be positive")
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}

	block, err := aes.NewCipher(cfg.Key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead, config: cfg}, nil
}

// Name returns the configured cookie name.
func (c *Codec) Name() string {
	return c.config.Name
}

// Encode seals refreshToken into an opaque cookie value.
func (c *Codec) Encode(refreshToken string) (string, error) {
	plain, err := json.Marshal(payload{RefreshToken: refreshToken, Version: payloadVersion})
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nil, nonce, plain, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, "."), nil
}

// Decode opens an encoded cookie value and returns the refresh token.
// Every failure is ErrCookieInvalid.
func (c *Codec) Decode(value string) (string, error) {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return "", ErrCookieInvalid
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", ErrCookieInvalid
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", ErrCookieInvalid
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrCookieInvalid
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrCookieInvalid
	}

	var p payload
	if err := json.Unmarshal(plain, &p); err != nil {
		return "", ErrCookieInvalid
	}
	if p.Version != payloadVersion || p.RefreshToken == "" {
		return "", ErrCookieInvalid
	}
	return p.RefreshToken, nil
}

// Bake seals refreshToken and wraps it in a browser cookie: HttpOnly,
// Secure, SameSite=Lax, scoped to the configured path.
func (c *Codec) Bake(refreshToken string) (*http.Cookie, error) {
	value, err := c.Encode(refreshToken)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     c.config.Name,
		Value:    value,
		Path:     c.config.Path,
		MaxAge:   int(c.config.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Read extracts and opens the refresh cookie from a request. A missing
// cookie and an invalid one are the same failure.
func (c *Codec) Read(r *http.Request) (string, error) {
	ck, err := r.Cookie(c.config.Name)
	if err != nil {
		return "", ErrCookieInvalid
	}
	return c.Decode(ck.Value)
}

// Expire returns a cookie that instructs the browser to drop the stored
// value, for logout responses.
func (c *Codec) Expire() *http.Cookie {
	return &http.Cookie{
		Name:     c.config.Name,
		Value:    "",
		Path:     c.config.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

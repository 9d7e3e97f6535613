package cookie

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)

	codec, err := NewCodec(Config{
		Key:    key,
		Name:   "ch_refresh",
		Path:   "/auth",
		MaxAge: 168 * time.Hour,
	})
	require.NoError(t, err)
	return codec
}

func TestRoundTripRandomTokens(t *testing.T) {
	codec := testCodec(t)

	for i := 0; i < 10_000; i++ {
		raw := make([]byte, 32)
		_, err := rand.Read(raw)
		require.NoError(t, err)
		token := base64.RawURLEncoding.EncodeToString(raw)

		sealed, err := codec.Encode(token)
		require.NoError(t, err)

		opened, err := codec.Decode(sealed)
		require.NoError(t, err)
		require.Equal(t, token, opened)
	}
}

func TestNoncesAreFresh(t *testing.T) {
	codec := testCodec(t)

	first, err := codec.Encode("same-token")
	require.NoError(t, err)
	second, err := codec.Encode("same-token")
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "two encryptions of one token must differ")
}

func TestSingleByteMutationFailsDecode(t *testing.T) {
	codec := testCodec(t)

	sealed, err := codec.Encode("the-refresh-token-value")
	require.NoError(t, err)

	for i := 0; i < len(sealed); i++ {
		if sealed[i] == '.' {
			continue
		}
		mutated := []byte(sealed)
		mutated[i] ^= 0x01

		opened, err := codec.Decode(string(mutated))
		assert.ErrorIs(t, err, ErrCookieInvalid, "mutation at offset %d must fail", i)
		assert.Empty(t, opened)
	}
}

func TestDecodeMalformedValues(t *testing.T) {
	codec := testCodec(t)

	cases := []string{
		"",
		"no-dots-here",
		"one.dot",
		"a.b.c.d",
		"!!!.AAAAAAAAAAAAAAAAAAAAAA==.AAAA",
		"AAAAAAAAAAAAAAAA.!!!.AAAA",
	}
	for _, value := range cases {
		_, err := codec.Decode(value)
		assert.ErrorIs(t, err, ErrCookieInvalid, "value %q", value)
	}
}

func TestDecodeRejectsForeignKey(t *testing.T) {
	sealed, err := testCodec(t).Encode("token")
	require.NoError(t, err)

	_, err = testCodec(t).Decode(sealed)
	assert.ErrorIs(t, err, ErrCookieInvalid)
}

func TestBakeSetsBrowserAttributes(t *testing.T) {
	codec := testCodec(t)

	ck, err := codec.Bake("token-value")
	require.NoError(t, err)

	assert.Equal(t, "ch_refresh", ck.Name)
	assert.Equal(t, "/auth", ck.Path)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, int((168 * time.Hour).Seconds()), ck.MaxAge)
}

func TestReadFromRequest(t *testing.T) {
	codec := testCodec(t)

	ck, err := codec.Bake("token-value")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/web-refresh", nil)
	req.AddCookie(ck)

	token, err := codec.Read(req)
	require.NoError(t, err)
	assert.Equal(t, "token-value", token)

	// Missing cookie reads the same as an invalid one.
	bare := httptest.NewRequest(http.MethodPost, "/auth/web-refresh", nil)
	_, err = codec.Read(bare)
	assert.ErrorIs(t, err, ErrCookieInvalid)
}

func TestExpireClearsCookie(t *testing.T) {
	codec := testCodec(t)

	ck := codec.Expire()
	assert.Equal(t, "ch_refresh", ck.Name)
	assert.Empty(t, ck.Value)
	assert.Equal(t, -1, ck.MaxAge)
}

func TestNewCodecRejectsBadConfig(t *testing.T) {
	key := make([]byte, KeySize)

	_, err := NewCodec(Config{Key: key[:16], Name: "c", MaxAge: time.Hour})
	assert.Error(t, err)

	_, err = NewCodec(Config{Key: key, Name: "", MaxAge: time.Hour})
	assert.Error(t, err)

	_, err = NewCodec(Config{Key: key, Name: "c", MaxAge: 0})
	assert.Error(t, err)
}

// Package cookie is the browser transport for refresh tokens: an
// AES-256-GCM authenticated-encryption wrapper that serializes a refresh
// token into an opaque cookie value and reverses the operation.
//
// # Wire format
//
// nonce.tag.ciphertext — three standard-base64 segments, with a fresh
// 96-bit nonce per encryption. Decryption failures of any kind collapse to
// [ErrCookieInvalid] and must be handled exactly like an absent cookie.
//
// # What this package must NOT do
//
//   - Validate or rotate the refresh token it carries.
//   - Distinguish tamper, corruption, and version mismatch to callers.
package cookie

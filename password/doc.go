// Package password implements password hashing and verification with
// PBKDF2-HMAC-SHA256.
//
// # Output format
//
// Hashes are encoded as a dot-delimited triple:
//
//	{iterations}.{salt-base64}.{hash-base64}
//
// Verification always recomputes with the iteration count and salt recorded
// in the stored value, so the configured work factor can be raised without
// invalidating hashes produced under older settings. [Hasher.NeedsRehash]
// reports when a stored hash is weaker than the current config so the caller
// can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Lockout policy and
// credential persistence are enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other package of this module.
//   - Log plaintext passwords.
package password

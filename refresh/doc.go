// Package refresh owns the rotating refresh-token chain: issuance,
// single-use rotation, expiry, session-age ceiling, and revocation.
//
// # Token format
//
// Opaque base64url-encoded 32-byte random values. The token value doubles as
// the store key; nothing is derivable from it.
//
// # Rotation model
//
// Every successful refresh supersedes the presented record with a new one
// carrying the next chain index, the same session identity, and a fresh
// expiry. The store applies revoke-old plus create-new as one atomic unit,
// so under concurrent refreshes of the same token at most one caller wins.
// With reuse detection enabled, superseded records are retained in a revoked
// state until natural expiry; presenting one marks it compromised and
// revokes every chain belonging to the user.
//
// # Architecture boundaries
//
// This package owns rotation policy and the [Store] contract with its
// in-memory, Redis, and PostgreSQL adapters. Access-token issuance and
// user lookups are handled by the Engine.
//
// # What this package must NOT do
//
//   - Mint or parse JWTs.
//   - Touch user records or lockout state.
//   - Surface which failure mode (missing, rotated, expired) hit a caller
//     beyond the reuse-detection signal.
package refresh

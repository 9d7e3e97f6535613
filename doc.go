// Package cloudhatch implements the credential and session lifecycle of an
// embeddable identity core: PBKDF2 password verification with failed-login
// lockout, HS256 access tokens, rotating single-use refresh tokens with
// replay detection, an encrypted browser cookie transport, and a trusted
// origin gate for cookie endpoints.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// cloudhatch is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (TokenPair, AuditEvent, MetricsSnapshot).
// Password hashing, token signing, refresh rotation, and cookie sealing
// live in the password, jwt, refresh, and cookie sub-packages; the engine
// composes them and owns all policy.
//
// # What this package must NOT do
//
//   - Store users. Accounts are read and written through the caller's
//     [UserProvider]; the engine owns only its refresh-token records.
//   - Serve HTTP. It hands the caller cookies, claims, and errors; routing
//     and response shaping belong to the host application.
//   - Leak secrets. No error, log line, or audit event carries a password,
//     signing key, or raw refresh token.
//
// # Failure contract
//
// Authentication failures collapse into coarse sentinel errors (unknown
// username and wrong password are indistinguishable; every cookie decode
// failure looks like a missing cookie) so that callers cannot build
// enumeration or padding oracles out of the error surface.
package cloudhatch

// Package middleware exposes HTTP adapters over the engine's validation and
// origin checks.
//
// # Guards
//
//   - [RequireAccess] — reads the Authorization header, validates the bearer
//     access token, and injects claims into the request context.
//   - [RequireTrustedOrigin] — CSRF gate for cookie-based endpoints; rejects
//     requests whose declared origin is not the configured trusted host.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to the Engine).
//   - Touch cookies or refresh tokens (those flows stay in the host app).
//   - Leak rejection reasons to clients.
package middleware

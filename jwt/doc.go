// Package jwt issues and verifies HS256 access tokens with strict
// validation semantics: algorithm pinning, mandatory expiry, and
// issuer/audience checks driven by configuration.
package jwt

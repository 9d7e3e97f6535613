package cloudhatch

import (
	"fmt"
	"net/http"
	"strings"
)

// OriginGuard gates cookie-based endpoints on a single trusted host. It is
// a CSRF check, not an authorization check: token endpoints that require
// possession of a bearer token do not need it.
type OriginGuard struct {
	trustedHost string
}

// NewOriginGuard normalizes and pins the trusted host. An empty host yields
// a guard that rejects everything.
func NewOriginGuard(trustedHost string) *OriginGuard {
	return &OriginGuard{
		trustedHost: normalizeHost(trustedHost),
	}
}

// Allowed reports whether the declared request host matches the trusted
// host. Comparison is case-insensitive with no wildcard or subdomain
// matching.
func (g *OriginGuard) Allowed(requestHost string) bool {
	if g == nil || g.trustedHost == "" {
		return false
	}
	return normalizeHost(requestHost) == g.trustedHost
}

// Check is Allowed with a descriptive error for server-side logs. The error
// must never be echoed verbatim to clients.
func (g *OriginGuard) Check(requestHost string) error {
	if g.Allowed(requestHost) {
		return nil
	}
	return fmt.Errorf("%w: host %q is not the trusted origin", ErrOriginRejected, requestHost)
}

// CheckRequest applies Check to the request's Origin header, falling back
// to the Host header when no Origin is present.
func (g *OriginGuard) CheckRequest(r *http.Request) error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrOriginRejected)
	}
	host := r.Header.Get("Origin")
	if host == "" {
		host = r.Host
	}
	return g.Check(host)
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}

// normalizeIDP maps an account's issuer string to a short identity-provider
// tag for the access token's idp claim.
func normalizeIDP(issuer string) string {
	issuer = strings.ToLower(strings.TrimSpace(issuer))
	switch {
	case issuer == "" || issuer == IssuerLocal:
		return IssuerLocal
	case strings.Contains(issuer, "google"):
		return "google"
	case strings.Contains(issuer, "microsoftonline") || strings.Contains(issuer, "microsoft"):
		return "microsoft"
	default:
		return issuer
	}
}

package middleware

import (
	"net/http"

	cloudhatch "github.com/IulianH/CloudHatch-sub000"
)

// RequireTrustedOrigin gates cookie-based (web-*) endpoints on the engine's
// configured trusted origin. Rejections are generic 403s; the descriptive
// reason stays server-side in the engine's audit stream.
func RequireTrustedOrigin(engine *cloudhatch.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			if err := engine.CheckOrigin(r); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import "net/http"

// SecurityHeadersConfig holds security headers configuration
type SecurityHeadersConfig struct {
	Env string
}

// SecurityHeaders returns a middleware that adds browser security headers to
// every response. The API serves JSON only, so the CSP locks everything down;
// development keeps frame-ancestors open for local tooling.
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	production := config.Env == "production"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
			w.Header().Set("X-DNS-Prefetch-Control", "off")

			if production {
				w.Header().Set("Content-Security-Policy",
					"default-src 'none'; frame-ancestors 'none'; base-uri 'none'")
			} else {
				w.Header().Set("Content-Security-Policy",
					"default-src 'none'; frame-ancestors 'self'; base-uri 'self'")
			}

			// HSTS only makes sense once the response actually travelled over TLS.
			if production && (r.Header.Get("X-Forwarded-Proto") == "https" || r.URL.Scheme == "https") {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			w.Header().Set("Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=()")

			next.ServeHTTP(w, r)
		})
	}
}

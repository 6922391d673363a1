package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/stogden/crease/internal/auth"
	pkghttp "github.com/stogden/crease/pkg/http"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultAuthRateLimit returns the limit applied to credential endpoints.
// These endpoints do bcrypt work per request, so the window is tight.
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 5,
	}
}

// DefaultAuthenticatedRateLimit returns the limit applied per account on
// authenticated endpoints.
func DefaultAuthenticatedRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(tooManyRequests),
	)
}

// RateLimitByAccount creates a middleware that rate limits by the
// authenticated account, falling back to client IP when no claims are
// present. Must run after the auth middleware to see the claims.
func RateLimitByAccount(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if claims := auth.GetClaimsFromContext(r); claims != nil {
				return "account:" + claims.AccountID, nil
			}
			return httprate.KeyByRealIP(r)
		}),
		httprate.WithLimitHandler(tooManyRequests),
	)
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.")
}

package middleware

import (
	"net/http"

	"github.com/mcoot/mahjongtracker/internal/api/apierr"
	"github.com/mcoot/mahjongtracker/internal/middleware"
)

// RateLimit limits requests per client IP, answering with a JSON 429
func RateLimit(limiter *middleware.IPRateLimiter) func(http.Handler) http.Handler {
	return middleware.RateLimit(limiter, func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteError(w, r, apierr.NewRateLimitedError())
	})
}

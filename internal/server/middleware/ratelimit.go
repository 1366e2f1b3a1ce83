package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// RateLimit returns middleware limiting each client IP to limit requests per
// window, backed by the shared limiter so multiple desk instances count
// together. A limiter outage fails open: serving slightly too fast beats
// serving nothing.
func RateLimit(limiter domain.RateLimiter, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			ok, err := limiter.Allow(r.Context(), "http:"+host, limit, window)
			if err != nil {
				logger.Warn("rate limiter unavailable", "error", err)
				ok = true
			}
			if !ok {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

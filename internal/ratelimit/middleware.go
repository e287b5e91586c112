package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"atelier/internal/netutil"
	"atelier/internal/observability/metrics"
)

// Middleware guards a route group with the given class. Rejections carry a
// Retry-After header with the seconds until the window resets.
func Middleware(l Limiter, class Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := netutil.ClientIP(r)
			res, err := l.Check(r.Context(), key, class)
			if err != nil {
				// Damping only: a broken limiter never blocks traffic.
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				metrics.RateLimitedTotal.WithLabelValues(string(class)).Inc()
				retryAfter := int(res.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"success":false,"message":"Too many requests. Please try again later.","retryAfter":%d}`, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

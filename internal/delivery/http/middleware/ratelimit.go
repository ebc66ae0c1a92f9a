package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	h "freeday/internal/delivery/http/helpers"
	"freeday/internal/domain"
)

// RateLimit returns a wrapper that allows at most limit requests per window for each key.
// keyFn may return "" to fall back to the client IP. metrics may be nil.
func RateLimit(limiter domain.RateLimiter, metrics *Metrics, route string, limit int, window time.Duration, keyFn func(*http.Request) string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || limiter == nil {
				next(w, r)
				return
			}
			var key string
			if keyFn != nil {
				key = keyFn(r)
			}
			if key == "" {
				key = RateLimitKeyIP(r)
			}
			decision := limiter.Allow(r.Context(), key, limit, window)
			applyRateHeaders(w, limit, decision)
			if !decision.Allowed {
				if metrics != nil {
					metrics.RecordRateLimitHit(route, rateMetricKey(key))
				}
				h.WriteJSONError(w, http.StatusTooManyRequests, h.ErrCodeTooManyRequests, "rate limit exceeded")
				return
			}
			next(w, r)
		}
	}
}

// RateLimitKeyUser keys by the authenticated user, or "" for anonymous requests.
func RateLimitKeyUser(r *http.Request) string {
	if id, ok := UserIDFromContext(r.Context()); ok && id != "" {
		return "user:" + id
	}
	return ""
}

// RateLimitKeyIP keys by the remote host.
func RateLimitKeyIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

func applyRateHeaders(w http.ResponseWriter, limit int, d domain.RateDecision) {
	remaining := limit - d.Count
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !d.WindowEnd.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.WindowEnd.Unix(), 10))
		if !d.Allowed {
			retry := int(time.Until(d.WindowEnd).Seconds()) + 1
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		}
	}
}

func rateMetricKey(key string) string {
	if idx := strings.IndexRune(key, ':'); idx > 0 {
		return key[:idx]
	}
	return "unknown"
}

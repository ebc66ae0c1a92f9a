package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeday/internal/delivery/http/helpers"
	"freeday/internal/domain"
)

// countingLimiter allows the first limit hits per key.
type countingLimiter struct {
	counts map[string]int
	keys   []string
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) domain.RateDecision {
	if l.counts == nil {
		l.counts = make(map[string]int)
	}
	l.keys = append(l.keys, key)
	l.counts[key]++
	return domain.RateDecision{
		Allowed:   l.counts[key] <= limit,
		Count:     l.counts[key],
		WindowEnd: time.Now().Add(window),
	}
}

func (l *countingLimiter) Close() {}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{}
	metrics := NewMetrics(prometheus.NewRegistry())
	handler := RateLimit(limiter, metrics, "POST /auth/login", 2, time.Minute, nil)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		handler(rr, req)
		return rr
	}

	first := send()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, first.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, send().Code)

	blocked := send()
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Equal(t, helpers.ErrCodeTooManyRequests, decodeErrorCode(t, blocked))

	assert.Equal(t, []string{"ip:10.0.0.1", "ip:10.0.0.1", "ip:10.0.0.1"}, limiter.keys)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rateLimitHits.WithLabelValues("POST /auth/login", "ip")))
}

func TestRateLimit_UserKeyAndDisabled(t *testing.T) {
	limiter := &countingLimiter{}
	handler := RateLimit(limiter, nil, "POST /posts", 5, time.Minute, RateLimitKeyUser)(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req = req.WithContext(SetClaims(req.Context(), &domain.TokenClaims{UserID: "u1"}))
	handler(httptest.NewRecorder(), req)
	assert.Equal(t, []string{"user:u1"}, limiter.keys)

	off := RateLimit(limiter, nil, "POST /posts", 0, time.Minute, nil)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	rr := httptest.NewRecorder()
	off(rr, httptest.NewRequest(http.MethodPost, "/posts", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Len(t, limiter.keys, 1)
}

package domain

import (
	"context"
	"time"
)

// RateDecision is the outcome of a fixed-window rate limit check.
type RateDecision struct {
	Allowed   bool
	Count     int
	WindowEnd time.Time
}

// RateLimiter counts hits per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) RateDecision
	Close()
}

package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"freeday/internal/domain"
)

const redisKeyPrefix = "freeday:ratelimit:"

// noExpiry is what TTL reports for a key that exists without an expiry.
const noExpiry = time.Duration(-1)

// Redis is a fixed window limiter shared by all API instances.
// Redis failures fail open and are logged.
type Redis struct {
	rdb     redis.Cmdable
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewRedis returns a Redis backed limiter.
func NewRedis(rdb redis.Cmdable, logger *slog.Logger) *Redis {
	return &Redis{rdb: rdb, logger: logger, timeout: 250 * time.Millisecond, now: time.Now}
}

// Allow implements domain.RateLimiter.
func (l *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) domain.RateDecision {
	if limit <= 0 {
		return domain.RateDecision{Allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	redisKey := redisKeyPrefix + key
	counter, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logRedisError(ctx, "incr", err)
		return domain.RateDecision{Allowed: true}
	}
	if counter == 1 {
		if err := l.rdb.Expire(ctx, redisKey, window).Err(); err != nil {
			l.logRedisError(ctx, "expire", err)
		}
	}
	ttl, err := l.rdb.TTL(ctx, redisKey).Result()
	if err == nil && ttl == noExpiry {
		// expiry from the first hit was lost
		if err := l.rdb.Expire(ctx, redisKey, window).Err(); err != nil {
			l.logRedisError(ctx, "expire", err)
		}
	}
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return domain.RateDecision{
		Allowed:   int(counter) <= limit,
		Count:     int(counter),
		WindowEnd: l.now().Add(ttl),
	}
}

// Close is a no-op; the Redis client is owned by the caller.
func (l *Redis) Close() {}

func (l *Redis) logRedisError(ctx context.Context, op string, err error) {
	l.logger.WarnContext(ctx, "redis rate limiter error", "op", op, "err", err)
}

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"freeday/internal/domain"
)

const (
	eventListPrefix    = "freeday:events:list:"
	eventGenerationKey = "freeday:events:generation"
)

// EventCache caches public event listing pages in Redis.
type EventCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewEventCache returns an EventCache whose entries live for ttl.
func NewEventCache(rdb redis.Cmdable, ttl time.Duration) *EventCache {
	return &EventCache{rdb: rdb, ttl: ttl}
}

// Generation returns the listing generation shared by every API instance.
func (c *EventCache) Generation(ctx context.Context) (uint64, error) {
	gen, err := c.rdb.Get(ctx, eventGenerationKey).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// Get returns the cached page or nil on a miss.
func (c *EventCache) Get(ctx context.Context, key string) (*domain.EventPage, error) {
	b, err := c.rdb.Get(ctx, eventListPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var page domain.EventPage
	if err := json.Unmarshal(b, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Set stores the page under key.
func (c *EventCache) Set(ctx context.Context, key string, page *domain.EventPage) error {
	b, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, eventListPrefix+key, b, c.ttl).Err()
}

// Invalidate advances the generation and drops every cached listing page.
func (c *EventCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, eventGenerationKey).Err(); err != nil {
		return err
	}
	iter := c.rdb.Scan(ctx, 0, eventListPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// NopEventCache disables caching when Redis is not configured.
type NopEventCache struct{}

func (NopEventCache) Generation(context.Context) (uint64, error) { return 0, nil }
func (NopEventCache) Get(context.Context, string) (*domain.EventPage, error) { return nil, nil }
func (NopEventCache) Set(context.Context, string, *domain.EventPage) error { return nil }
func (NopEventCache) Invalidate(context.Context) error { return nil }

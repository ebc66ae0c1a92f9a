package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"freeday/internal/domain"
)

const revokedKeyPrefix = "freeday:revoked:"

type redisRevoker struct {
	rdb redis.Cmdable
	now func() time.Time
}

// NewRedisRevoker returns a TokenRevoker that keeps revoked token ids in Redis until they expire.
func NewRedisRevoker(rdb redis.Cmdable) domain.TokenRevoker {
	return &redisRevoker{rdb: rdb, now: time.Now}
}

func (r *redisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (r *redisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := r.rdb.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevoker returns a process-local TokenRevoker used when Redis is not configured.
func NewMemoryRevoker() domain.TokenRevoker {
	return &memoryRevoker{revoked: make(map[string]time.Time), now: time.Now}
}

func (m *memoryRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, id)
		}
	}
	if expiresAt.After(now) {
		m.revoked[tokenID] = expiresAt
	}
	return nil
}

func (m *memoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[tokenID]
	return ok && exp.After(m.now()), nil
}

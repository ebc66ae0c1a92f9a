package ratelimit

import (
	"context"
	"sync"
	"time"

	"freeday/internal/domain"
)

const sweepInterval = 5 * time.Minute

type windowState struct {
	count     int
	windowEnd time.Time
}

// Memory is a process-local fixed window limiter.
type Memory struct {
	mu      sync.Mutex
	entries map[string]windowState
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemory returns a Memory limiter and starts its sweep loop. Call Close to stop it.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]windowState),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Allow implements domain.RateLimiter.
func (m *Memory) Allow(_ context.Context, key string, limit int, window time.Duration) domain.RateDecision {
	if limit <= 0 {
		return domain.RateDecision{Allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.entries[key]
	if !ok || now.After(state.windowEnd) {
		state = windowState{count: 1, windowEnd: now.Add(window)}
		m.entries[key] = state
		return domain.RateDecision{Allowed: true, Count: 1, WindowEnd: state.windowEnd}
	}
	if state.count >= limit {
		return domain.RateDecision{Allowed: false, Count: state.count, WindowEnd: state.windowEnd}
	}
	state.count++
	m.entries[key] = state
	return domain.RateDecision{Allowed: true, Count: state.count, WindowEnd: state.windowEnd}
}

func (m *Memory) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, state := range m.entries {
		if now.After(state.windowEnd) {
			delete(m.entries, key)
		}
	}
}

// Close stops the sweep loop.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.stopCh) })
}

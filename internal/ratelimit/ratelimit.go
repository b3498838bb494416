// Package ratelimit counts requests per key in fixed windows. Stores are
// injected so tests can reset them and several instances can share one.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"worktime-backend/internal/clock"
)

type Store interface {
	// Allow records one hit for key and reports whether it is within max
	// hits for the current window.
	Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error)
}

// Memory keeps counters in process. Expired windows are dropped lazily.
type Memory struct {
	mu      sync.Mutex
	clock   clock.Clock
	windows map[string]*counter
}

type counter struct {
	hits      int
	expiresAt time.Time
}

func NewMemory(c clock.Clock) *Memory {
	return &Memory{clock: c, windows: map[string]*counter{}}
}

func (m *Memory) Allow(_ context.Context, key string, max int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	entry, ok := m.windows[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &counter{expiresAt: now.Add(window)}
		m.windows[key] = entry
	}
	entry.hits++

	if len(m.windows) > 1024 {
		m.prune(now)
	}
	return entry.hits <= max, nil
}

func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = map[string]*counter{}
}

func (m *Memory) prune(now time.Time) {
	for key, entry := range m.windows {
		if !now.Before(entry.expiresAt) {
			delete(m.windows, key)
		}
	}
}

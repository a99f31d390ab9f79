// Package cache stores rendered listing text between mutations.
package cache

import (
	"context"
	"sync"
	"time"
)

const (
	KeyCausae       = "listing:causae"
	KeyCommissiones = "listing:commissiones"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Invalidate(ctx context.Context, keys ...string) error
}

type entry struct {
	value   string
	expires time.Time
}

// Memory is a process-local Cache. A zero TTL keeps entries until they are
// invalidated.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{entries: make(map[string]entry), ttl: ttl, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{value: value}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Invalidate(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

type item struct {
	value    []byte
	expireAt time.Time
}

// Memory is an in-process Store. Expired entries are dropped when read.
type Memory struct {
	mu   sync.Mutex
	data map[string]item
	now  func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]item), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	if !it.expireAt.IsZero() && !m.now().Before(it.expireAt) {
		delete(m.data, key)
		return nil, ErrMiss
	}
	return slices.Clone(it.value), nil
}

// Set stores value. A non positive ttl never expires.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := item{value: slices.Clone(value)}
	if ttl > 0 {
		it.expireAt = m.now().Add(ttl)
	}
	m.data[key] = it
	return nil
}

// Len returns the number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Package cache keeps fetched market data between runs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrMiss is returned by Get for an absent or expired key.
var ErrMiss = errors.New("cache: key not found")

// Store is a byte cache with per-key expiration.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GetJSON reads key and decodes it into a T.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var v T
	data, err := s.Get(ctx, key)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(data, &v)
	return v, err
}

// SetJSON stores the JSON encoding of v under key.
func SetJSON[T any](ctx context.Context, s Store, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data, ttl)
}

// Layered reads through a fast store before a slow one, and writes to both.
type Layered struct {
	L1, L2 Store
	// TTL of values copied back into L1 after an L2 hit.
	TTL time.Duration
}

// NewLayered returns a two level store.
func NewLayered(l1, l2 Store, ttl time.Duration) *Layered { return &Layered{L1: l1, L2: l2, TTL: ttl} }

func (l *Layered) Get(ctx context.Context, key string) ([]byte, error) {
	if data, err := l.L1.Get(ctx, key); err == nil {
		return data, nil
	}
	data, err := l.L2.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = l.L1.Set(ctx, key, data, l.TTL)
	return data, nil
}

func (l *Layered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := l.L2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return l.L1.Set(ctx, key, value, ttl)
}

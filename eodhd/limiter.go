package eodhd

import (
	"context"
	"sync"
	"time"
)

// limiter is a token bucket shared by every request of a Client.
type limiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens per second, non positive means unlimited
	last     time.Time
	now      func() time.Time
}

func newLimiter(rate, capacity float64) *limiter {
	return &limiter{tokens: capacity, capacity: capacity, rate: rate, now: time.Now}
}

// reserve consumes a token if one is available, or returns how long to wait for the next one.
func (l *limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rate <= 0 {
		return 0
	}
	now := l.now()
	if !l.last.IsZero() {
		l.tokens = min(l.capacity, l.tokens+now.Sub(l.last).Seconds()*l.rate)
	}
	l.last = now
	if l.tokens >= 1 {
		l.tokens--
		return 0
	}
	return time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
}

// Wait blocks until a token is available or ctx is done.
func (l *limiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait == 0 {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Package ratelimit counts attempts per key over a sliding window. Counters
// are swappable so several server processes can share one store.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Counter stores attempt timestamps per key.
type Counter interface {
	Record(ctx context.Context, key string, at time.Time) error
	// Count returns the attempts for key at or after since.
	Count(ctx context.Context, key string, since time.Time) (int, error)
}

// Pruner is implemented by counters that can forget old attempts.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Taker is implemented by counters that can count and record as one atomic
// step, so concurrent callers never exceed max between them.
type Taker interface {
	Take(ctx context.Context, key string, at, since time.Time, max int) (bool, error)
}

// Limiter allows at most Max attempts per key within Window.
type Limiter struct {
	counter Counter
	max     int
	window  time.Duration
	now     func() time.Time
}

func NewLimiter(counter Counter, max int, window time.Duration) *Limiter {
	return &Limiter{counter: counter, max: max, window: window, now: time.Now}
}

// Allow records an attempt for key and reports true, or reports false
// without recording when key already used up its window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()
	if t, ok := l.counter.(Taker); ok {
		allowed, err := t.Take(ctx, key, now, now.Add(-l.window), l.max)
		if err != nil {
			return false, fmt.Errorf("take attempt: %w", err)
		}
		return allowed, nil
	}

	n, err := l.counter.Count(ctx, key, now.Add(-l.window))
	if err != nil {
		return false, fmt.Errorf("count attempts: %w", err)
	}
	if n >= l.max {
		return false, nil
	}
	if err := l.counter.Record(ctx, key, now); err != nil {
		return false, fmt.Errorf("record attempt: %w", err)
	}
	return true, nil
}

// Window is the sliding window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

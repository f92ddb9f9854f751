package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter keeps attempts in process memory.
type MemoryCounter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{attempts: make(map[string][]time.Time)}
}

func (c *MemoryCounter) Record(ctx context.Context, key string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[key] = append(c.attempts[key], at)
	return nil
}

func (c *MemoryCounter) Count(ctx context.Context, key string, since time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count(key, since), nil
}

// Take records an attempt at at unless key already has max attempts since since.
func (c *MemoryCounter) Take(ctx context.Context, key string, at, since time.Time, max int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count(key, since) >= max {
		return false, nil
	}
	c.attempts[key] = append(c.attempts[key], at)
	return true, nil
}

func (c *MemoryCounter) count(key string, since time.Time) int {
	n := 0
	for _, t := range c.attempts[key] {
		if !t.Before(since) {
			n++
		}
	}
	return n
}

func (c *MemoryCounter) Prune(ctx context.Context, before time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int64
	for key, times := range c.attempts {
		kept := times[:0]
		for _, t := range times {
			if t.Before(before) {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		if len(kept) == 0 {
			delete(c.attempts, key)
			continue
		}
		c.attempts[key] = kept
	}
	return removed, nil
}

package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a single-process blacklist used when no Redis is
// configured. Expired entries are dropped on access and by Sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]time.Time), now: time.Now}
}

// WithClock replaces the time source, for tests.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Set(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrNonPositiveTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[Key(token)] = c.now().Add(ttl)
	return nil
}

func (c *MemoryCache) Exists(_ context.Context, token string) (bool, error) {
	key := Key(token)

	c.mu.RLock()
	exp, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if c.now().Before(exp) {
		return true, nil
	}

	c.mu.Lock()
	if cur, ok := c.entries[key]; ok && !c.now().Before(cur) {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return false, nil
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, exp := range c.entries {
		if !now.Before(exp) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len is the number of entries currently held, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (c *MemoryCache) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Sweep()
		}
	}
}

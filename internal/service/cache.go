package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultCacheTTL is how long a computed read model is served before recomputation.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	value   any
	expires time.Time
}

// Cache holds computed read models keyed by request.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

// NewCache creates an empty cache. A non-positive ttl uses DefaultCacheTTL.
func NewCache(ttl time.Duration, clock clockwork.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the live value stored under key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(e.expires) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the cache TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expires: c.clock.Now().Add(c.ttl)}
}

// DeletePrefix drops every key starting with prefix.
func (c *Cache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops everything and returns how many entries were held.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]cacheEntry)
	return n
}

// Sweep drops expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// cached returns the value under key or computes and stores it.
func cached[T any](c *Cache, key string, compute func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// DefaultSweepInterval is how often StartSweeper evicts expired entries.
const DefaultSweepInterval = time.Minute

// StartSweeper runs a background goroutine that periodically evicts expired
// cache entries until ctx is canceled.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := c.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Cache sweeper started", "interval", interval, "ttl", c.ttl)

		for {
			select {
			case <-ticker.Chan():
				if removed := c.Sweep(); removed > 0 {
					slog.Debug("Cache sweeper evicted entries", "count", removed)
				}
			case <-ctx.Done():
				slog.Info("Cache sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

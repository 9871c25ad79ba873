package pubnotion

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache keys shared by the Source and the page layer.
const (
	keyPublishedPosts = "published-posts"
	keySiteConfig     = "site-config"
	keyAbout          = "about"
)

func postKey(slug string) string { return "post:" + slug }

func ogKey(slug string) string { return "og:" + slug }

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// Cache is an in-memory TTL memo keyed by string. Expired entries are never
// returned and are evicted lazily on access. Concurrent misses on one key
// share a single computation.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
	now     func() time.Time
	stats   CacheStats
}

// CacheStats receives cache lookup outcomes.
type CacheStats interface {
	CacheHit(key string)
	CacheMiss(key string)
}

type nopStats struct{}

func (nopStats) CacheHit(string)  {}
func (nopStats) CacheMiss(string) {}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithCacheStats reports hits and misses to s.
func WithCacheStats(s CacheStats) CacheOption {
	return func(c *Cache) { c.stats = s }
}

// NewCache returns an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
		stats:   nopStats{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the fresh value stored under key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included until they
// are next accessed.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrCompute returns the fresh value under key, or runs compute and caches
// its result for ttl. Errors are returned to every waiter and not cached.
// compute runs detached from ctx cancellation so a caller that gives up
// does not discard work other callers are waiting on.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			c.stats.CacheHit(key)
			return t, nil
		}
	}
	c.stats.CacheMiss(key)

	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		t, _ := res.Val.(T)
		return t, nil
	}
}

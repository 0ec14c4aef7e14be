// Package querycache holds short lived query results keyed by string,
// such as the current user for a browser.
package querycache

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// CurrentUserKey is the key under which the signed in user of a browser
// client is cached.
func CurrentUserKey(clientID string) string {
	return "current-user:" + clientID
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrent TTL cache.
type Cache[V any] struct {
	entries *xsync.MapOf[string, entry[V]]
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithClock overrides time.Now, used by tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache. A zero ttl keeps entries until invalidated.
func New[V any](ttl time.Duration, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries: xsync.NewMapOf[string, entry[V]](),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached value while it is fresh.
func (c *Cache[V]) Get(key string) (V, bool) {
	e, ok := c.entries.Load(key)
	if !ok || c.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *Cache[V]) Set(key string, value V) {
	e := entry[V]{value: value}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.entries.Store(key, e)
}

// Invalidate drops key so the next read refetches.
func (c *Cache[V]) Invalidate(key string) {
	c.entries.Delete(key)
}

// Fetch returns the cached value or loads and stores it. Load errors are
// not cached.
func (c *Cache[V]) Fetch(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, v)
	return v, nil
}

// Len counts stored entries, fresh or not.
func (c *Cache[V]) Len() int {
	return c.entries.Size()
}

// Sweep removes expired entries.
func (c *Cache[V]) Sweep() int {
	removed := 0
	c.entries.Range(func(key string, e entry[V]) bool {
		if c.expired(e) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (c *Cache[V]) expired(e entry[V]) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

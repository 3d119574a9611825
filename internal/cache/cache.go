package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrency-safe map whose entries expire after a fixed TTL.
// Reading an entry extends its lifetime. Expired entries are swept from Set at
// most once per TTL, so the map never holds more than about two TTLs of writes.
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	items     map[K]*entry[V]
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now as the cache's time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a cache with the given TTL.
func New[K comparable, V any](ttl time.Duration, opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		items: make(map[K]*entry[V]),
		ttl:   ttl,
		now:   o.now,
	}
}

// Get returns the value for key and whether it was present and unexpired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	now := c.now()
	if now.After(e.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	e.expiresAt = now.Add(c.ttl)
	return e.value, true
}

// Set stores value under key.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.ttl {
		c.pruneLocked(now)
		c.lastSweep = now
	}
	c.items[key] = &entry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Prune drops expired entries.
func (c *Cache[K, V]) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(c.now())
}

func (c *Cache[K, V]) pruneLocked(now time.Time) {
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
}

// Package cache keeps recent nutrition lookups in memory so identical
// queries do not hit the upstream model twice.
package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/okian/nutriscore/pkg/metrics"
)

// Cache stores nutrition records by normalized query key.
type Cache interface {
	// Get returns the cached record for key.
	Get(ctx context.Context, key string) (scoring.Record, bool)

	// Put stores rec under key, evicting the oldest entry at capacity.
	Put(ctx context.Context, key string, rec scoring.Record)

	// Delete removes key if present.
	Delete(ctx context.Context, key string)

	Size() int
}

type entry struct {
	key string
	rec scoring.Record
}

// inMemoryCache evicts in insertion order. maxSize <= 0 disables eviction.
type inMemoryCache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List // front is newest
	maxSize int
}

// NewInMemoryCache creates a cache with configuration options.
func NewInMemoryCache(opts ...Option) Cache {
	c := &inMemoryCache{
		maxSize: 1000,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.items = make(map[string]*list.Element)
	c.order = list.New()
	return c
}

func (c *inMemoryCache) Get(_ context.Context, key string) (scoring.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		metrics.RecordCacheMiss()
		return scoring.Record{}, false
	}
	metrics.RecordCacheHit()
	return el.Value.(*entry).rec, true
}

func (c *inMemoryCache) Put(_ context.Context, key string, rec scoring.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		// Refresh keeps the original insertion slot.
		el.Value.(*entry).rec = rec
		return
	}

	if c.maxSize > 0 && len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	c.items[key] = c.order.PushFront(&entry{key: key, rec: rec})
	metrics.UpdateCacheSize(len(c.items))
}

func (c *inMemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
		metrics.UpdateCacheSize(len(c.items))
	}
}

// evictOldest drops the tail. Must be called with c.mu held.
func (c *inMemoryCache) evictOldest() {
	tail := c.order.Back()
	if tail == nil {
		return
	}
	c.order.Remove(tail)
	delete(c.items, tail.Value.(*entry).key)
	metrics.RecordCacheEviction()
}

func (c *inMemoryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

package mediacache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

type memoryItem struct {
	entry    Entry
	storedAt time.Time
}

// MemoryCache is a bounded LRU whose entries also expire after ttl.
// Expired entries are dropped on read and by Sweep.
type MemoryCache struct {
	mu    sync.Mutex
	lru   *simplelru.LRU[string, memoryItem]
	ttl   time.Duration
	clock Clock
}

func NewMemoryCache(ttl time.Duration, maxEntries int, clock Clock) (*MemoryCache, error) {
	if clock == nil {
		clock = time.Now
	}
	lru, err := simplelru.NewLRU[string, memoryItem](maxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("media cache: %w", err)
	}
	return &MemoryCache{lru: lru, ttl: ttl, clock: clock}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.lru.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	if c.expired(item, c.clock()) {
		c.lru.Remove(key)
		return Entry{}, false, nil
	}
	return item.entry, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, memoryItem{entry: entry, storedAt: c.clock()})
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Remove(key)
	return nil
}

func (c *MemoryCache) Sweep(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	removed := 0
	for _, key := range c.lru.Keys() {
		item, ok := c.lru.Peek(key)
		if ok && c.expired(item, now) {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed, nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *MemoryCache) expired(item memoryItem, now time.Time) bool {
	return now.Sub(item.storedAt) >= c.ttl
}

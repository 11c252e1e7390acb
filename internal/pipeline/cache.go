// File path: internal/pipeline/cache.go
package pipeline

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/helpmate-bot/helpmate/internal/common/telemetry"
)

// Cache stores finished answers keyed by the normalized query. A cache is an
// optimization: implementations must degrade to a miss rather than fail.
type Cache interface {
	Get(ctx context.Context, key string) (*AnswerResult, bool)
	Set(ctx context.Context, key string, result *AnswerResult)
	Invalidate(ctx context.Context)
}

const (
	defaultCacheCapacity = 500
	defaultCacheTTL      = 15 * time.Minute
)

type memoryCacheEntry struct {
	key     string
	result  AnswerResult
	expires time.Time
}

// MemoryCache is an LRU with per-entry TTL. Expiry is checked on Get; stale
// entries are dropped lazily.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	ll       *list.List
	now      func() time.Time
}

func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &MemoryCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		ll:       list.New(),
		now:      time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*AnswerResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		telemetry.RecordCacheLookup(false)
		return nil, false
	}
	entry := elem.Value.(memoryCacheEntry)
	if c.now().After(entry.expires) {
		c.ll.Remove(elem)
		delete(c.items, key)
		telemetry.RecordCacheLookup(false)
		return nil, false
	}
	c.ll.MoveToFront(elem)
	telemetry.RecordCacheLookup(true)
	result := entry.result
	return &result, true
}

func (c *MemoryCache) Set(_ context.Context, key string, result *AnswerResult) {
	if result == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := memoryCacheEntry{key: key, result: *result, expires: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = entry
		c.ll.MoveToFront(elem)
		return
	}
	elem := c.ll.PushFront(entry)
	c.items[key] = elem
	if c.ll.Len() > c.capacity {
		tail := c.ll.Back()
		if tail != nil {
			c.ll.Remove(tail)
			delete(c.items, tail.Value.(memoryCacheEntry).key)
		}
	}
}

func (c *MemoryCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.ll = list.New()
}

var _ Cache = (*MemoryCache)(nil)

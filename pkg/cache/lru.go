// Package cache holds a small TTL'd response cache for the registry's hot
// read endpoints, the golden lookup and the status history.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// record is one cached response body plus its expiry deadline.
type record struct {
	key      string
	body     []byte
	deadline time.Time
}

// LRUCache bounds the response cache by entry count and by age. Entries move
// to the front on every hit, so capacity pressure evicts the least recently
// used key. Expiry is checked on read; a stale entry is dropped then.
type LRUCache struct {
	mu       sync.Mutex
	order    *list.List // front is most recently used
	index    map[string]*list.Element
	capacity int
	ttl      time.Duration
}

// NewLRUCache builds a cache holding at most maxSize entries for at most ttl
// each. Out-of-range arguments are clamped to usable values.
func NewLRUCache(maxSize int, ttl time.Duration) *LRUCache {
	if maxSize < 1 {
		maxSize = 1
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &LRUCache{
		order:    list.New(),
		index:    make(map[string]*list.Element, maxSize),
		capacity: maxSize,
		ttl:      ttl,
	}
}

// Get returns the cached body for key, or (nil, false) when the key is
// absent or past its deadline.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	rec := el.Value.(*record)
	if time.Now().After(rec.deadline) {
		c.remove(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return rec.body, true
}

// Set stores body under key, refreshing the deadline when the key already
// exists and evicting the least recently used entry when full.
func (c *LRUCache) Set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.ttl)
	if el, ok := c.index[key]; ok {
		rec := el.Value.(*record)
		rec.body = body
		rec.deadline = deadline
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		if back := c.order.Back(); back != nil {
			c.remove(back)
		}
	}
	c.index[key] = c.order.PushFront(&record{key: key, body: body, deadline: deadline})
}

// Invalidate drops a single key.
func (c *LRUCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.remove(el)
	}
}

// InvalidateMatching drops every entry whose key contains substr. Keys embed
// the site and the request URI, so a mutation can clear every cached response
// naming an asset, version or branch id without knowing the exact key set.
func (c *LRUCache) InvalidateMatching(substr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if strings.Contains(el.Value.(*record).key, substr) {
			c.remove(el)
		}
		el = next
	}
}

// InvalidateAll empties the cache.
func (c *LRUCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.index = make(map[string]*list.Element, c.capacity)
}

// Size reports the entry count, including entries that have expired but not
// yet been read.
func (c *LRUCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// remove unlinks el from the list and the index. Caller holds c.mu.
func (c *LRUCache) remove(el *list.Element) {
	delete(c.index, el.Value.(*record).key)
	c.order.Remove(el)
}

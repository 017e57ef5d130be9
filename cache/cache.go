// Package cache provides the two in-memory stores the market pipeline
// injects into its services: a flat TTL cache for short-lived quote
// snapshots and a bounded LRU cache for history windows and fundamentals.
// Neither store persists anything; restarting the process starts cold.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// TTLCache is a concurrency-safe map whose entries expire after a fixed
// duration. Expired entries are treated as misses on read and reclaimed
// by Prune; Len and Keys report raw contents including expired entries.
type TTLCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

// NewTTLCache creates a TTL cache. Entries written with a non-positive
// ttl expire immediately.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Get returns the live value for key, or false if absent or expired.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, resetting its expiry.
func (c *TTLCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// Delete removes key if present.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len reports the number of stored entries, expired ones included.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Keys returns the stored keys, expired ones included.
func (c *TTLCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Clear drops every entry.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}

// Prune removes expired entries and returns how many were dropped.
func (c *TTLCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var dropped int
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

type boundedEntry struct {
	key       string
	value     any
	expiresAt time.Time
}

// BoundedCache is a concurrency-safe LRU cache with both a capacity
// bound and a per-entry TTL. When full, Set evicts the least recently
// used entry; Get refreshes recency and removes expired entries on
// contact.
type BoundedCache struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	entries   map[string]*list.Element
	order     *list.List // front is least recently used
	evictions int64
}

// NewBoundedCache creates an LRU cache holding at most capacity entries,
// each live for ttl. A capacity below 1 is raised to 1.
func NewBoundedCache(capacity int, ttl time.Duration) *BoundedCache {
	if capacity < 1 {
		capacity = 1
	}
	return &BoundedCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the live value for key, marking it most recently used.
// Expired entries are removed and reported as misses.
func (c *BoundedCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*boundedEntry)
	if time.Now().After(e.expiresAt) {
		c.remove(el)
		return nil, false
	}
	c.order.MoveToBack(el)
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry if
// the cache is full.
func (c *BoundedCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*boundedEntry)
		e.value = value
		e.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToBack(el)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Front(); oldest != nil {
			c.remove(oldest)
			c.evictions++
		}
	}

	e := &boundedEntry{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
	c.entries[key] = c.order.PushBack(e)
}

// remove must be called with the lock held.
func (c *BoundedCache) remove(el *list.Element) {
	e := el.Value.(*boundedEntry)
	c.order.Remove(el)
	delete(c.entries, e.key)
}

// Len reports the number of stored entries, expired ones included.
func (c *BoundedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Keys returns the stored keys ordered least to most recently used.
func (c *BoundedCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*boundedEntry).key)
	}
	return keys
}

// Clear drops every entry. The eviction counter is left intact.
func (c *BoundedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Prune removes expired entries and returns how many were dropped.
func (c *BoundedCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var dropped int
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if now.After(el.Value.(*boundedEntry).expiresAt) {
			c.remove(el)
			dropped++
		}
		el = next
	}
	return dropped
}

// Evictions reports how many entries capacity pressure has pushed out
// since the cache was created.
func (c *BoundedCache) Evictions() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.evictions
}

// Package pricecache stores resolved price points in memory for a fixed
// TTL. Expiry is lazy: an expired entry is removed the next time it is
// read, there is no background sweeper. Concurrent lookups of a cold key
// may each hit the data source and overwrite one another; last write wins.
package pricecache

import (
	"sync"
	"time"

	"stockdiff/internal/model"
)

type entry struct {
	point   model.PricePoint
	created time.Time
}

// Cache is a TTL keyed store of price points. Use New; the zero value has
// no map.
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]entry
}

// New builds a cache whose entries live for ttl. A non-positive ttl makes
// every entry expire on its first read.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Get returns the live point stored under key. Reading an expired entry
// deletes it and reports a miss.
func (c *Cache) Get(key string) (model.PricePoint, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return model.PricePoint{}, false
	}
	if time.Since(e.created) >= c.ttl {
		c.mu.Lock()
		// Only drop the generation we saw; a concurrent Set stays.
		if cur, ok := c.entries[key]; ok && cur.created.Equal(e.created) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return model.PricePoint{}, false
	}
	return e.point, true
}

// Set stores point under key, unconditionally replacing any prior entry.
func (c *Cache) Set(key string, point model.PricePoint) {
	c.mu.Lock()
	c.entries[key] = entry{point: point, created: time.Now()}
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports how many entries are held, including not yet reaped expired
// ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Package chargecache holds the last known battery percentage for active
// sessions. Entries are ephemeral: they expire a fixed interval after the
// last write and the store is bounded, so losing one never blocks billing:
// the calculator's deterministic estimate substitutes.
package chargecache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// DefaultTTL keeps a reading around well past any plausible session.
	DefaultTTL = 6 * time.Hour
	// DefaultMaxEntries bounds memory for the pathological case of sessions
	// that never complete.
	DefaultMaxEntries = 10000
)

// Cache is a bounded TTL store mapping session id -> battery percent.
// Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	items      *gocache.Cache
	maxEntries int
}

// New builds a cache with the given retention window and entry bound.
// Non-positive arguments fall back to the defaults.
func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	cleanup := ttl / 4
	if cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return &Cache{
		items:      gocache.New(ttl, cleanup),
		maxEntries: maxEntries,
	}
}

// Put overwrites the reading for a session and restarts its TTL.
func (c *Cache) Put(sessionID string, percent float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items.Get(sessionID); !exists && c.items.ItemCount() >= c.maxEntries {
		c.evictOldest()
	}
	c.items.SetDefault(sessionID, percent)
}

// Get returns the last known percent for a session.
func (c *Cache) Get(sessionID string) (float64, bool) {
	v, ok := c.items.Get(sessionID)
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

// Remove drops the reading; called when the session completes.
func (c *Cache) Remove(sessionID string) {
	c.items.Delete(sessionID)
}

// Len reports the current entry count (may include not-yet-swept expired
// entries).
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// evictOldest removes the entry with the earliest expiry. The TTL is fixed,
// so earliest expiry equals oldest write. Caller holds c.mu.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest int64
	for key, item := range c.items.Items() {
		if oldestKey == "" || item.Expiration < oldest {
			oldestKey = key
			oldest = item.Expiration
		}
	}
	if oldestKey != "" {
		c.items.Delete(oldestKey)
	}
}

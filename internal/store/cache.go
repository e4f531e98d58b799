// Package store holds the process-local TTL cache of flattened tables.
// There is at most one entry per source key; entries are superseded by
// Put, never mutated in place.
package store

import (
	"sync"
	"time"

	"github.com/otokawa-k/kaonavi-mcp-server/config"
	"github.com/otokawa-k/kaonavi-mcp-server/internal/table"
)

type entry struct {
	table     *table.Table
	createdAt time.Time
}

// Cache maps source keys ("members", "sheet:<id>") to tables with a
// creation timestamp. Get ignores stale entries rather than evicting
// them; the next Put for the key replaces the entry wholesale.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	clock   func() time.Time
}

// NewCache constructs a cache. Pass ttl <= 0 for the default; clock
// defaults to time.Now when nil.
func NewCache(ttl time.Duration, clock func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached table for key while it is fresh
// (now - createdAt < ttl). Absence is a normal, silent condition.
func (c *Cache) Get(key string) (*table.Table, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.clock().Sub(e.createdAt) >= c.ttl {
		return nil, false
	}
	return e.table, true
}

// Put stores a table under key, replacing any previous entry. Readers see
// either the old table or the new one, never a partial state.
func (c *Cache) Put(key string, t *table.Table) {
	c.mu.Lock()
	c.entries[key] = entry{table: t, createdAt: c.clock()}
	c.mu.Unlock()
}

// TTL reports the configured freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

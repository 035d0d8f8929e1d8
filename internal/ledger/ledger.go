// Package ledger tracks which work items have already been fully processed.
// The ledger is the sole source of truth for "already processed": it is
// consulted before any network or AI cost is incurred, and written only after
// a run reaches its terminal Completed transition.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Ledger is consulted by the scheduler before dispatch and updated by workers
// on completion. Implementations cache the full known-processed set in memory
// for the duration of a scheduling pass; Load seeds that cache once.
type Ledger interface {
	// Load seeds the in-memory set from the backing store. Called once per
	// scheduling pass before any IsProcessed lookup.
	Load(ctx context.Context) error

	// IsProcessed reports whether key completed in a previous run. Served
	// from the cache; never performs an external call.
	IsProcessed(key string) bool

	// MarkProcessed durably records key as complete. Safe for concurrent use;
	// duplicate marks are last-write-wins.
	MarkProcessed(ctx context.Context, key string, completedAt time.Time) error

	// Snapshot returns the known-processed keys in stable order.
	Snapshot() []string
}

// cache is the shared in-memory set embedded by every backend.
type cache struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

func newCache() cache {
	return cache{keys: make(map[string]struct{})}
}

func (c *cache) replace(keys map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = make(map[string]struct{}, len(keys))
	for k := range keys {
		c.keys[k] = struct{}{}
	}
}

func (c *cache) add(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key] = struct{}{}
}

func (c *cache) has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.keys[key]
	return ok
}

func (c *cache) snapshot() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.keys))
	for k := range c.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

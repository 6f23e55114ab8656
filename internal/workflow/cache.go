package workflow

import (
	"sync"
	"time"
)

// statusCache holds recent workflow observations keyed by PO business number,
// so overlapping poll loops and list refreshes do not hammer the upstream.
type statusCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	status    Status
	fetchedAt time.Time
}

func newStatusCache(ttl time.Duration) *statusCache {
	return &statusCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *statusCache) get(poNumber string) (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[poNumber]
	if !ok || time.Since(e.fetchedAt) >= c.ttl {
		delete(c.entries, poNumber)
		return Status{}, false
	}
	return e.status, true
}

func (c *statusCache) put(poNumber string, s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[poNumber] = cacheEntry{status: s, fetchedAt: time.Now()}
}

// clear drops every cached observation. Called on tracker shutdown.
func (c *statusCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

package fetch

import (
	"sync"
	"time"

	"pricewatch/internal/domain"
)

// ttlCache holds successful fetch results per article. It is owned by one
// Client instance and takes its clock by injection so tests can advance
// time without sleeping.
type ttlCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	attrs   domain.ProductAttrs
	expires time.Time
}

func newTTLCache(ttl time.Duration, now func() time.Time) *ttlCache {
	return &ttlCache{ttl: ttl, now: now, entries: make(map[string]cacheEntry)}
}

func (c *ttlCache) get(article string) (domain.ProductAttrs, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[article]
	if !ok {
		return domain.ProductAttrs{}, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, article)
		return domain.ProductAttrs{}, false
	}
	return e.attrs, true
}

func (c *ttlCache) set(article string, attrs domain.ProductAttrs) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[article] = cacheEntry{attrs: attrs, expires: c.now().Add(c.ttl)}
}

package currency

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RateCache is a process-wide, time-boxed cache of exchange rates keyed
// by currency code. Entries expire after the TTL; there is no early
// invalidation. The clock is injectable for tests.
type RateCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// NewRateCache creates a cache with the given TTL using the wall clock
func NewRateCache(ttl time.Duration) *RateCache {
	return NewRateCacheWithClock(ttl, time.Now)
}

// NewRateCacheWithClock creates a cache with an explicit clock
func NewRateCacheWithClock(ttl time.Duration, now func() time.Time) *RateCache {
	return &RateCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached rate if present and not expired
func (c *RateCache) Get(currency string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[currency]
	if !ok {
		return decimal.Zero, false
	}
	if c.now().Sub(entry.fetchedAt) >= c.ttl {
		return decimal.Zero, false
	}
	return entry.rate, true
}

// Put stores a rate with the current timestamp
func (c *RateCache) Put(currency string, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[currency] = cacheEntry{rate: rate, fetchedAt: c.now()}
}

package pricing

import (
	"sort"
	"sync"
	"time"
)

// PriceCache is a TTL cache of recent price observations. Entries expire
// after the TTL; when the cache exceeds its hard size cap the oldest 25%
// are evicted regardless of TTL. Its lifecycle is independent of any
// position.
type PriceCache struct {
	mu      sync.Mutex
	entries map[string]priceEntry
	ttl     time.Duration
	maxSize int
}

type priceEntry struct {
	price      float64
	observedAt time.Time
}

// NewPriceCache creates a price cache with the given TTL and hard size cap.
func NewPriceCache(ttl time.Duration, maxSize int) *PriceCache {
	return &PriceCache{
		entries: make(map[string]priceEntry),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get returns the cached price for a mint if it is still fresh.
func (c *PriceCache) Get(tokenMint string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[tokenMint]
	if !ok || time.Since(entry.observedAt) > c.ttl {
		PriceCacheMissesTotal.Inc()
		return 0, false
	}

	PriceCacheHitsTotal.Inc()

	return entry.price, true
}

// Set stores a fresh price observation.
func (c *PriceCache) Set(tokenMint string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[tokenMint] = priceEntry{price: price, observedAt: time.Now()}
	PriceCacheEntries.Set(float64(len(c.entries)))
}

// Sweep drops expired entries and, if the cache still exceeds the hard
// size cap, evicts the oldest 25% regardless of TTL. Called
// opportunistically on each batch pass.
func (c *PriceCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for mint, entry := range c.entries {
		if now.Sub(entry.observedAt) > c.ttl {
			delete(c.entries, mint)
		}
	}

	if len(c.entries) > c.maxSize {
		type aged struct {
			mint       string
			observedAt time.Time
		}

		all := make([]aged, 0, len(c.entries))
		for mint, entry := range c.entries {
			all = append(all, aged{mint: mint, observedAt: entry.observedAt})
		}

		sort.Slice(all, func(i, j int) bool {
			return all[i].observedAt.Before(all[j].observedAt)
		})

		evict := len(c.entries) / 4
		if evict < 1 {
			evict = 1
		}
		for _, victim := range all[:evict] {
			delete(c.entries, victim.mint)
		}

		PriceCacheEvictionsTotal.Add(float64(evict))
	}

	PriceCacheEntries.Set(float64(len(c.entries)))
}

// Len returns the current entry count.
func (c *PriceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

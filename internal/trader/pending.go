package trader

import (
	"sync"
	"time"
)

// pendingSet guards at-most-one in-flight execution per opportunity key.
// Entries are timestamped so the self-heal pass can purge leftovers from
// executions that never released their key.
type pendingSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newPendingSet() *pendingSet {
	return &pendingSet{entries: make(map[string]time.Time)}
}

// tryAcquire claims a key. Returns false if an execution for the key is
// already in flight.
func (p *pendingSet) tryAcquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, inFlight := p.entries[key]; inFlight {
		return false
	}
	p.entries[key] = time.Now()
	PendingTrades.Set(float64(len(p.entries)))

	return true
}

// release frees a key after execution completes.
func (p *pendingSet) release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.entries, key)
	PendingTrades.Set(float64(len(p.entries)))
}

// purgeOlderThan drops entries older than the timeout and returns how
// many were removed.
func (p *pendingSet) purgeOlderThan(timeout time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-timeout)
	purged := 0
	for key, at := range p.entries {
		if at.Before(cutoff) {
			delete(p.entries, key)
			purged++
		}
	}

	PendingTrades.Set(float64(len(p.entries)))

	return purged
}

func (p *pendingSet) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.entries)
}

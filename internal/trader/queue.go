package trader

import (
	"sort"
	"sync"
	"time"

	"github.com/mkudasov/soltrader/pkg/types"
)

// queueEntry wraps an opportunity with its enqueue time.
type queueEntry struct {
	opp        *types.Opportunity
	enqueuedAt time.Time
}

// OpportunityQueue is a bounded priority queue ordered by PriorityScore
// descending. Insertion re-sorts and truncates to the max size. Under
// pressure (occupancy above 80%) the queue proactively trims to the top
// 25% so execution is never starved behind a herd of low-value entries.
type OpportunityQueue struct {
	mu      sync.Mutex
	entries []queueEntry
	maxSize int
}

// NewOpportunityQueue creates a queue with the given capacity.
func NewOpportunityQueue(maxSize int) *OpportunityQueue {
	if maxSize <= 0 {
		maxSize = 100
	}

	return &OpportunityQueue{maxSize: maxSize}
}

// Push inserts an opportunity, applying pressure relief first and the
// size bound after. Returns the resulting queue length.
func (q *OpportunityQueue) Push(opp *types.Opportunity) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) > q.maxSize*8/10 {
		q.trimLocked()
	}

	q.entries = append(q.entries, queueEntry{opp: opp, enqueuedAt: time.Now()})
	q.sortLocked()

	if len(q.entries) > q.maxSize {
		q.entries = q.entries[:q.maxSize]
	}

	QueueDepth.Set(float64(len(q.entries)))

	return len(q.entries)
}

// PopBatch removes and returns up to n highest-priority opportunities.
func (q *OpportunityQueue) PopBatch(n int) []*types.Opportunity {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.entries) {
		n = len(q.entries)
	}
	if n <= 0 {
		return nil
	}

	batch := make([]*types.Opportunity, n)
	for i := 0; i < n; i++ {
		batch[i] = q.entries[i].opp
	}
	q.entries = q.entries[n:]

	QueueDepth.Set(float64(len(q.entries)))

	return batch
}

// Len returns the current queue length.
func (q *OpportunityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}

// trimLocked keeps only the top 25% by priority.
func (q *OpportunityQueue) trimLocked() {
	q.sortLocked()

	keep := q.maxSize / 4
	if keep < 1 {
		keep = 1
	}
	if keep < len(q.entries) {
		QueueTrimsTotal.Inc()
		QueueEvictionsTotal.Add(float64(len(q.entries) - keep))
		q.entries = q.entries[:keep]
	}
}

func (q *OpportunityQueue) sortLocked() {
	sort.SliceStable(q.entries, func(i, j int) bool {
		return q.entries[i].opp.PriorityScore > q.entries[j].opp.PriorityScore
	})
}

package trader

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkudasov/soltrader/internal/testutil"
	"github.com/mkudasov/soltrader/pkg/types"
)

func opportunityWithPriority(id string, priority float64) *types.Opportunity {
	opp := testutil.BuyOpportunity("mint-"+id, 0.001, 0.9, priority)
	opp.PoolAddress = "pool-" + id
	return opp
}

func TestQueue_OrdersByPriorityDescending(t *testing.T) {
	q := NewOpportunityQueue(10)

	q.Push(opportunityWithPriority("low", 0.2))
	q.Push(opportunityWithPriority("high", 0.9))
	q.Push(opportunityWithPriority("mid", 0.5))

	batch := q.PopBatch(3)
	require.Len(t, batch, 3)
	assert.InDelta(t, 0.9, batch[0].PriorityScore, 1e-9)
	assert.InDelta(t, 0.5, batch[1].PriorityScore, 1e-9)
	assert.InDelta(t, 0.2, batch[2].PriorityScore, 1e-9)
}

func TestQueue_TruncatesAtMaxSize(t *testing.T) {
	q := NewOpportunityQueue(5)

	for i := 0; i < 5; i++ {
		q.Push(opportunityWithPriority(fmt.Sprintf("n%d", i), float64(i)/10))
	}

	assert.LessOrEqual(t, q.Len(), 5)
}

func TestQueue_PopBatchBounded(t *testing.T) {
	q := NewOpportunityQueue(10)
	q.Push(opportunityWithPriority("a", 0.5))
	q.Push(opportunityWithPriority("b", 0.6))

	batch := q.PopBatch(5)
	assert.Len(t, batch, 2)
	assert.Zero(t, q.Len())
	assert.Nil(t, q.PopBatch(5))
}

// 150 opportunities into a queue of 100: pressure relief must keep the
// queue bounded and retain the top-priority entries.
func TestQueue_PressureRelief(t *testing.T) {
	q := NewOpportunityQueue(100)

	for i := 0; i < 150; i++ {
		q.Push(opportunityWithPriority(fmt.Sprintf("n%d", i), float64(i)/150))
	}

	require.LessOrEqual(t, q.Len(), 100)

	batch := q.PopBatch(q.Len())
	require.NotEmpty(t, batch)

	// The single highest-priority opportunity always survives, and the
	// batch comes out in descending priority order.
	assert.InDelta(t, 149.0/150, batch[0].PriorityScore, 1e-9)
	for i := 1; i < len(batch); i++ {
		assert.GreaterOrEqual(t, batch[i-1].PriorityScore, batch[i].PriorityScore)
	}
}

func TestPendingSet_AtMostOnePerKey(t *testing.T) {
	p := newPendingSet()

	require.True(t, p.tryAcquire("pool-1:buy"))
	assert.False(t, p.tryAcquire("pool-1:buy"))
	// A different action on the same pool is a different key.
	assert.True(t, p.tryAcquire("pool-1:sell"))

	p.release("pool-1:buy")
	assert.True(t, p.tryAcquire("pool-1:buy"))
}

func TestPendingSet_PurgeOlderThan(t *testing.T) {
	p := newPendingSet()

	p.tryAcquire("stale")
	p.entries["stale"] = p.entries["stale"].Add(-10 * time.Minute)
	p.tryAcquire("fresh")

	purged := p.purgeOlderThan(5 * time.Minute)
	assert.Equal(t, 1, purged)
	assert.Equal(t, 1, p.len())
	assert.True(t, p.tryAcquire("stale"))
}

func TestEventBus_NonBlockingPublish(t *testing.T) {
	bus := NewEventBus(testutil.Logger())

	sub := bus.Subscribe(1)

	// Two publishes into a one-slot buffer: second is dropped, publish
	// never blocks.
	bus.Publish(&types.Event{Kind: types.EventPriceUpdated})
	bus.Publish(&types.Event{Kind: types.EventPriceUpdated})

	event := <-sub
	assert.Equal(t, types.EventPriceUpdated, event.Kind)
	assert.False(t, event.Timestamp.IsZero())

	select {
	case <-sub:
		t.Fatal("expected second event to be dropped")
	default:
	}

	bus.Close()
	_, open := <-sub
	assert.False(t, open)
}

package pricing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSource struct {
	mu     sync.Mutex
	prices map[string]float64
	delay  time.Duration
	calls  int
}

func (m *mockSource) GetPrice(ctx context.Context, tokenMint string) (float64, error) {
	m.mu.Lock()
	m.calls++
	price, ok := m.prices[tokenMint]
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if !ok {
		return 0, errors.New("unknown mint")
	}

	return price, nil
}

func (m *mockSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestScheduler(t *testing.T, source PriceSource, min, max int) *Scheduler {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	s, err := NewScheduler(&SchedulerConfig{
		Source:   source,
		Cache:    NewPriceCache(time.Minute, 1000),
		Interval: time.Hour, // batches driven manually in tests
		BatchMin: min,
		BatchMax: max,
		Logger:   logger,
	})
	require.NoError(t, err)

	return s
}

func TestNewScheduler_Validation(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	source := &mockSource{}
	cache := NewPriceCache(time.Minute, 10)

	tests := []struct {
		name string
		cfg  *SchedulerConfig
	}{
		{name: "nil-config", cfg: nil},
		{name: "nil-source", cfg: &SchedulerConfig{Cache: cache, Interval: time.Second, BatchMin: 3, BatchMax: 20, Logger: logger}},
		{name: "nil-cache", cfg: &SchedulerConfig{Source: source, Interval: time.Second, BatchMin: 3, BatchMax: 20, Logger: logger}},
		{name: "zero-interval", cfg: &SchedulerConfig{Source: source, Cache: cache, BatchMin: 3, BatchMax: 20, Logger: logger}},
		{name: "inverted-bounds", cfg: &SchedulerConfig{Source: source, Cache: cache, Interval: time.Second, BatchMin: 20, BatchMax: 3, Logger: logger}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestScheduler_BatchInvokesCallbacks(t *testing.T) {
	source := &mockSource{prices: map[string]float64{"mint-a": 1.5, "mint-b": 2.5}}
	s := newTestScheduler(t, source, 3, 20)

	var (
		mu       sync.Mutex
		observed = make(map[string]float64)
	)
	record := func(mint string, price float64) {
		mu.Lock()
		observed[mint] = price
		mu.Unlock()
	}

	s.Watch("mint-a", record)
	s.Watch("mint-b", record)

	s.RunBatch(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.InDelta(t, 1.5, observed["mint-a"], 1e-9)
	assert.InDelta(t, 2.5, observed["mint-b"], 1e-9)
}

func TestScheduler_CacheHitSkipsFetch(t *testing.T) {
	source := &mockSource{prices: map[string]float64{"mint-a": 1.5}}
	s := newTestScheduler(t, source, 3, 20)

	var got float64
	s.Watch("mint-a", func(mint string, price float64) { got = price })

	s.RunBatch(context.Background())
	require.Equal(t, 1, source.callCount())

	// Second batch within the TTL serves from cache.
	s.RunBatch(context.Background())
	assert.Equal(t, 1, source.callCount())
	assert.InDelta(t, 1.5, got, 1e-9)
}

func TestScheduler_FetchErrorSkipsCallback(t *testing.T) {
	source := &mockSource{prices: map[string]float64{}}
	s := newTestScheduler(t, source, 3, 20)

	called := false
	s.Watch("mint-unknown", func(string, float64) { called = true })

	s.RunBatch(context.Background())
	assert.False(t, called)
}

func TestScheduler_RotationCoversAllWatches(t *testing.T) {
	source := &mockSource{prices: map[string]float64{
		"mint-a": 1, "mint-b": 2, "mint-c": 3, "mint-d": 4, "mint-e": 5,
	}}
	s := newTestScheduler(t, source, 2, 2) // batch fixed at 2

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	record := func(mint string, price float64) {
		mu.Lock()
		seen[mint] = true
		mu.Unlock()
	}

	for _, mint := range []string{"mint-a", "mint-b", "mint-c", "mint-d", "mint-e"} {
		s.Watch(mint, record)
	}

	// Three batches of two cover all five watched mints.
	for i := 0; i < 3; i++ {
		s.RunBatch(context.Background())
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 5)
}

func TestScheduler_Unwatch(t *testing.T) {
	source := &mockSource{prices: map[string]float64{"mint-a": 1}}
	s := newTestScheduler(t, source, 3, 20)

	called := false
	s.Watch("mint-a", func(string, float64) { called = true })
	s.Unwatch("mint-a")

	s.RunBatch(context.Background())

	assert.False(t, called)
	assert.Zero(t, s.Watched())
}

func TestScheduler_BatchSizeShrinksWhenSlow(t *testing.T) {
	s := newTestScheduler(t, &mockSource{}, 3, 20)
	s.batchSize = 10

	s.adaptBatchSize(time.Second)
	assert.Equal(t, 9, s.batchSize)

	// Never below the floor.
	s.batchSize = 3
	s.adaptBatchSize(time.Second)
	assert.Equal(t, 3, s.batchSize)
}

func TestScheduler_BatchSizeGrowsWhenFast(t *testing.T) {
	s := newTestScheduler(t, &mockSource{}, 3, 20)

	s.adaptBatchSize(50 * time.Millisecond)
	assert.Equal(t, 4, s.batchSize)

	// Never above the ceiling.
	s.batchSize = 20
	s.adaptBatchSize(50 * time.Millisecond)
	assert.Equal(t, 20, s.batchSize)
}

func TestScheduler_BatchSizeStableInBand(t *testing.T) {
	s := newTestScheduler(t, &mockSource{}, 3, 20)
	s.batchSize = 10

	s.adaptBatchSize(300 * time.Millisecond)
	assert.Equal(t, 10, s.batchSize)
}

func TestPriceCache_TTLExpiry(t *testing.T) {
	c := NewPriceCache(20*time.Millisecond, 100)

	c.Set("mint-a", 1.5)
	price, ok := c.Get("mint-a")
	require.True(t, ok)
	assert.InDelta(t, 1.5, price, 1e-9)

	time.Sleep(30 * time.Millisecond)

	_, ok = c.Get("mint-a")
	assert.False(t, ok)
}

func TestPriceCache_SweepRemovesExpired(t *testing.T) {
	c := NewPriceCache(10*time.Millisecond, 100)

	c.Set("mint-a", 1)
	c.Set("mint-b", 2)
	time.Sleep(20 * time.Millisecond)

	c.Sweep()
	assert.Zero(t, c.Len())
}

func TestPriceCache_HardCapEvictsOldestQuarter(t *testing.T) {
	c := NewPriceCache(time.Hour, 8)

	for i := 0; i < 12; i++ {
		c.Set(string(rune('a'+i)), float64(i))
		time.Sleep(time.Millisecond) // distinct observation times
	}

	c.Sweep()

	// 12 entries over an 8-entry cap: the oldest 3 (25%) are evicted.
	assert.Equal(t, 9, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("l")
	assert.True(t, ok)
}

func TestPriceCache_LifecycleIndependentOfWatches(t *testing.T) {
	source := &mockSource{prices: map[string]float64{"mint-a": 1.5}}
	s := newTestScheduler(t, source, 3, 20)

	s.Watch("mint-a", func(string, float64) {})
	s.RunBatch(context.Background())
	s.Unwatch("mint-a")

	// The cached entry survives unwatching until its TTL lapses.
	price, ok := s.cache.Get("mint-a")
	assert.True(t, ok)
	assert.InDelta(t, 1.5, price, 1e-9)
}

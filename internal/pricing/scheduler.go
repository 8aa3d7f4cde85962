package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// Batch wall-time bounds driving the adaptive batch size.
	batchSlowThreshold = 500 * time.Millisecond
	batchFastThreshold = 100 * time.Millisecond
)

// Callback receives a fresh price observation for a watched mint.
// Invoked from the scheduler's polling goroutine; implementations must
// return quickly and push slow work onto their own goroutines, or they
// delay refreshes for every other watched mint.
type Callback func(tokenMint string, price float64)

// Scheduler polls prices for a watch set of token mints on a fixed
// interval. Mints are served in FIFO rotation so every watched token is
// refreshed even when the watch set exceeds the batch size. The batch
// size adapts to observed fetch latency within configured bounds.
type Scheduler struct {
	logger   *zap.Logger
	source   PriceSource
	cache    *PriceCache
	interval time.Duration
	batchMin int
	batchMax int

	mu        sync.Mutex
	watches   map[string]Callback
	rotation  []string
	batchSize int

	wg   sync.WaitGroup
	stop chan struct{}
}

// SchedulerConfig holds price scheduler configuration.
type SchedulerConfig struct {
	Source   PriceSource
	Cache    *PriceCache
	Interval time.Duration
	BatchMin int
	BatchMax int
	Logger   *zap.Logger
}

// NewScheduler creates a price polling scheduler.
func NewScheduler(cfg *SchedulerConfig) (*Scheduler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("price source cannot be nil")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("price cache cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if cfg.BatchMin <= 0 || cfg.BatchMax < cfg.BatchMin {
		return nil, fmt.Errorf("invalid batch bounds [%d, %d]", cfg.BatchMin, cfg.BatchMax)
	}

	return &Scheduler{
		logger:    cfg.Logger,
		source:    cfg.Source,
		cache:     cfg.Cache,
		interval:  cfg.Interval,
		batchMin:  cfg.BatchMin,
		batchMax:  cfg.BatchMax,
		batchSize: cfg.BatchMin,
		watches:   make(map[string]Callback),
		stop:      make(chan struct{}),
	}, nil
}

// Watch adds a mint to the polling set. Re-watching an already watched
// mint replaces its callback.
func (s *Scheduler) Watch(tokenMint string, cb Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.watches[tokenMint]; !exists {
		s.rotation = append(s.rotation, tokenMint)
	}
	s.watches[tokenMint] = cb

	WatchedTokens.Set(float64(len(s.watches)))
}

// Unwatch removes a mint from the polling set. The cached price entry is
// left to expire on its own.
func (s *Scheduler) Unwatch(tokenMint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.watches[tokenMint]; !exists {
		return
	}
	delete(s.watches, tokenMint)

	for i, mint := range s.rotation {
		if mint == tokenMint {
			s.rotation = append(s.rotation[:i], s.rotation[i+1:]...)
			break
		}
	}

	WatchedTokens.Set(float64(len(s.watches)))
}

// Watched returns the number of mints currently being polled.
func (s *Scheduler) Watched() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.watches)
}

// Start launches the polling loop. Runs until the context is cancelled
// or Close is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("price-scheduler-started",
		zap.Duration("interval", s.interval),
		zap.Int("batch_min", s.batchMin),
		zap.Int("batch_max", s.batchMax))

	s.wg.Add(1)
	go s.pollLoop(ctx)
}

// Close stops the polling loop and waits for in-flight batches.
func (s *Scheduler) Close() {
	close(s.stop)
	s.wg.Wait()
	s.logger.Info("price-scheduler-stopped")
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.RunBatch(ctx)
		}
	}
}

// RunBatch polls one batch of watched mints: cache hits are served
// immediately, misses are fetched concurrently. Batch latency feeds the
// adaptive batch size. Exported for the self-heal path and tests.
func (s *Scheduler) RunBatch(ctx context.Context) {
	batch, callbacks := s.nextBatch()
	if len(batch) == 0 {
		return
	}

	start := time.Now()

	type observation struct {
		mint  string
		price float64
	}

	var (
		obsMu   sync.Mutex
		results []observation
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, mint := range batch {
		if price, ok := s.cache.Get(mint); ok {
			obsMu.Lock()
			results = append(results, observation{mint: mint, price: price})
			obsMu.Unlock()
			continue
		}

		mint := mint
		g.Go(func() error {
			price, err := s.source.GetPrice(gctx, mint)
			if err != nil {
				s.logger.Warn("price-fetch-failed",
					zap.String("mint", mint),
					zap.Error(err))
				return nil
			}

			s.cache.Set(mint, price)

			obsMu.Lock()
			results = append(results, observation{mint: mint, price: price})
			obsMu.Unlock()

			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	PriceBatchDuration.Observe(elapsed.Seconds())

	for _, obs := range results {
		if cb, ok := callbacks[obs.mint]; ok && cb != nil {
			cb(obs.mint, obs.price)
		}
	}

	s.adaptBatchSize(elapsed)
	s.cache.Sweep()
}

// nextBatch takes up to batchSize mints from the front of the rotation
// and moves them to the back, so slow-growing watch sets still cycle.
func (s *Scheduler) nextBatch() ([]string, map[string]Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.batchSize
	if n > len(s.rotation) {
		n = len(s.rotation)
	}
	if n == 0 {
		return nil, nil
	}

	batch := make([]string, n)
	copy(batch, s.rotation[:n])
	s.rotation = append(s.rotation[n:], batch...)

	callbacks := make(map[string]Callback, n)
	for _, mint := range batch {
		callbacks[mint] = s.watches[mint]
	}

	return batch, callbacks
}

func (s *Scheduler) adaptBatchSize(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case elapsed > batchSlowThreshold && s.batchSize > s.batchMin:
		s.batchSize--
		s.logger.Debug("batch-size-decreased",
			zap.Int("batch_size", s.batchSize),
			zap.Duration("elapsed", elapsed))
	case elapsed < batchFastThreshold && s.batchSize < s.batchMax:
		s.batchSize++
	}

	PriceBatchSize.Set(float64(s.batchSize))
}

package trader

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkudasov/soltrader/internal/pricing"
	"github.com/mkudasov/soltrader/internal/risk"
	"github.com/mkudasov/soltrader/internal/storage"
	"github.com/mkudasov/soltrader/internal/strategy"
	"github.com/mkudasov/soltrader/internal/testutil"
	"github.com/mkudasov/soltrader/pkg/types"
)

type detectorFunc func(ctx context.Context, event *types.PoolEvent) (*types.Opportunity, error)

func (f detectorFunc) Detect(ctx context.Context, event *types.PoolEvent) (*types.Opportunity, error) {
	return f(ctx, event)
}

type validatorFunc func(ctx context.Context, mint string) (*types.TokenValidationResult, error)

func (f validatorFunc) Validate(ctx context.Context, mint string) (*types.TokenValidationResult, error) {
	return f(ctx, mint)
}

type riskCheckFunc func(ctx context.Context, mint string) (*types.RiskCheckResult, error)

func (f riskCheckFunc) Check(ctx context.Context, mint string) (*types.RiskCheckResult, error) {
	return f(ctx, mint)
}

type mockExecutor struct {
	mu        sync.Mutex
	buyErr    error
	sellErr   error
	delay     time.Duration
	onBuy     func()
	buyCalls  int
	sellCalls int
	lastBuy   float64
}

func (m *mockExecutor) ExecuteBuy(ctx context.Context, opp *types.Opportunity, baseAmount float64) *types.TradeResult {
	m.mu.Lock()
	m.buyCalls++
	m.lastBuy = baseAmount
	err := m.buyErr
	delay := m.delay
	hook := m.onBuy
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	result := &types.TradeResult{Timestamp: time.Now()}
	if err != nil {
		result.Err = err
		return result
	}

	result.Success = true
	result.Signature = "sig-buy"
	result.TokenAmount = int64(math.Round(baseAmount / opp.EstimatedPrice))
	result.BaseAmount = baseAmount
	result.Price = opp.EstimatedPrice

	return result
}

func (m *mockExecutor) ExecuteSell(ctx context.Context, opp *types.Opportunity) *types.TradeResult {
	m.mu.Lock()
	m.sellCalls++
	err := m.sellErr
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	result := &types.TradeResult{Timestamp: time.Now()}
	if err != nil {
		result.Err = err
		return result
	}

	result.Success = true
	result.Signature = "sig-sell"
	result.TokenAmount = opp.SellAmount
	result.BaseAmount = float64(opp.SellAmount) * opp.EstimatedPrice
	result.Price = opp.EstimatedPrice

	return result
}

func (m *mockExecutor) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buyCalls, m.sellCalls
}

type mockWatcher struct {
	mu        sync.Mutex
	callbacks map[string]pricing.Callback
	unwatched []string
}

func newMockWatcher() *mockWatcher {
	return &mockWatcher{callbacks: make(map[string]pricing.Callback)}
}

func (w *mockWatcher) Watch(mint string, cb pricing.Callback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks[mint] = cb
}

func (w *mockWatcher) Unwatch(mint string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.callbacks, mint)
	w.unwatched = append(w.unwatched, mint)
}

func (w *mockWatcher) callback(mint string) (pricing.Callback, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cb, ok := w.callbacks[mint]
	return cb, ok
}

type mockGate struct {
	mu      sync.Mutex
	enabled bool
	trades  []float64
}

func (g *mockGate) IsEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

func (g *mockGate) RecordTrade(size float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trades = append(g.trades, size)
}

type staticBalance struct{ funds float64 }

func (b *staticBalance) GetBalance(ctx context.Context, pubkey string) (float64, error) {
	return b.funds, nil
}

type harness struct {
	trader   *Trader
	executor *mockExecutor
	watcher  *mockWatcher
	gate     *mockGate
	strategy *strategy.Manager
	risk     *risk.Adjuster
}

func newTestTrader(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()

	logger := testutil.Logger()

	strat := strategy.New(&strategy.Config{
		BuyEnabled:       true,
		MinConfidence:    0.5,
		MinPriorityScore: 0.5,
		Logger:           logger,
	})

	adjuster := risk.New(&risk.Config{
		AdjustInterval:        time.Minute,
		WindowSize:            50,
		MaxRiskPerToken:       0.05,
		MinRiskPerToken:       0.005,
		MaxTotalRisk:          0.25,
		MinTotalRisk:          0.05,
		Step:                  0.005,
		MaxAllocationPerToken: 0.10,
		Logger:                logger,
	})

	executor := &mockExecutor{}
	watcher := newMockWatcher()
	gate := &mockGate{enabled: true}

	cfg := &Config{
		Detector: detectorFunc(func(ctx context.Context, event *types.PoolEvent) (*types.Opportunity, error) {
			return types.NewBuyOpportunity(event, event.TokenAMint, event.TokenBMint, 0.001, 0.9, 0.9), nil
		}),
		Validator: validatorFunc(func(ctx context.Context, mint string) (*types.TokenValidationResult, error) {
			return &types.TokenValidationResult{IsValid: true, Token: mint}, nil
		}),
		RiskCheck: riskCheckFunc(func(ctx context.Context, mint string) (*types.RiskCheckResult, error) {
			return &types.RiskCheckResult{Passed: true}, nil
		}),
		Strategy:        strat,
		Risk:            adjuster,
		Gate:            gate,
		Executor:        executor,
		Store:           storage.NewConsoleStorage(logger),
		Prices:          watcher,
		Balance:         &staticBalance{funds: 1000},
		Pubkey:          "wallet-pubkey",
		QueueMaxSize:    100,
		BatchSize:       5,
		BatchInterval:   time.Hour, // loops driven manually in tests
		HealInterval:    time.Hour,
		StuckResetAfter: time.Minute,
		PendingTimeout:  5 * time.Minute,
		Logger:          logger,
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	tr, err := New(cfg)
	require.NoError(t, err)
	tr.runCtx = context.Background()

	return &harness{trader: tr, executor: executor, watcher: watcher, gate: gate, strategy: strat, risk: adjuster}
}

func TestHandleNewPool_Enqueues(t *testing.T) {
	h := newTestTrader(t)
	sub := h.trader.Events().Subscribe(8)

	h.trader.HandleNewPool(context.Background(), testutil.PoolEvent("mint-token"))

	assert.Equal(t, 1, h.trader.queue.Len())

	event := <-sub
	assert.Equal(t, types.EventOpportunityDetected, event.Kind)
	require.NotNil(t, event.Opportunity)
	assert.Equal(t, "mint-token", event.Opportunity.TokenMint)
}

func TestHandleNewPool_ValidationRejected(t *testing.T) {
	h := newTestTrader(t, func(cfg *Config) {
		cfg.Validator = validatorFunc(func(ctx context.Context, mint string) (*types.TokenValidationResult, error) {
			return &types.TokenValidationResult{IsValid: false, Token: mint, Reason: "honeypot"}, nil
		})
	})
	sub := h.trader.Events().Subscribe(8)

	h.trader.HandleNewPool(context.Background(), testutil.PoolEvent("mint-token"))

	assert.Zero(t, h.trader.queue.Len())

	event := <-sub
	assert.Equal(t, types.EventErrorOccurred, event.Kind)
	var rejected *types.ValidationRejectedError
	assert.ErrorAs(t, event.Err, &rejected)
}

func TestHandleNewPool_RiskRejected(t *testing.T) {
	h := newTestTrader(t, func(cfg *Config) {
		cfg.RiskCheck = riskCheckFunc(func(ctx context.Context, mint string) (*types.RiskCheckResult, error) {
			return &types.RiskCheckResult{Passed: false, Reason: "blacklisted deployer"}, nil
		})
	})

	h.trader.HandleNewPool(context.Background(), testutil.PoolEvent("mint-token"))
	assert.Zero(t, h.trader.queue.Len())
}

func TestHandleNewPool_StrategyRejected(t *testing.T) {
	h := newTestTrader(t, func(cfg *Config) {
		cfg.Detector = detectorFunc(func(ctx context.Context, event *types.PoolEvent) (*types.Opportunity, error) {
			// Priority below the 0.5 eligibility floor.
			return types.NewBuyOpportunity(event, event.TokenAMint, event.TokenBMint, 0.001, 0.9, 0.2), nil
		})
	})

	h.trader.HandleNewPool(context.Background(), testutil.PoolEvent("mint-token"))
	assert.Zero(t, h.trader.queue.Len())
}

func TestHandleNewPool_DetectorErrorDoesNotCrash(t *testing.T) {
	h := newTestTrader(t, func(cfg *Config) {
		cfg.Detector = detectorFunc(func(ctx context.Context, event *types.PoolEvent) (*types.Opportunity, error) {
			return nil, errors.New("quote unavailable")
		})
	})

	h.trader.HandleNewPool(context.Background(), testutil.PoolEvent("mint-token"))
	assert.Zero(t, h.trader.queue.Len())
}

func TestDispatchBatch_BuyOpensPositionAndWatchesPrice(t *testing.T) {
	h := newTestTrader(t)
	ctx := context.Background()

	h.trader.HandleNewPool(ctx, testutil.PoolEvent("mint-token"))
	h.trader.dispatchBatch(ctx, "test")

	buys, _ := h.executor.counts()
	require.Equal(t, 1, buys)

	// Sized at the risk floor: 0.5% of 1000 funds.
	assert.InDelta(t, 5.0, h.executor.lastBuy, 1e-9)

	snap, held := h.strategy.Position("mint-token")
	require.True(t, held)
	assert.Equal(t, int64(5000), snap.Amount)

	_, watching := h.watcher.callback("mint-token")
	assert.True(t, watching)

	// Circuit breaker saw the trade.
	assert.Len(t, h.gate.trades, 1)
}

func TestExecuteBuy_HaltedByBreaker(t *testing.T) {
	h := newTestTrader(t)
	h.gate.mu.Lock()
	h.gate.enabled = false
	h.gate.mu.Unlock()

	ctx := context.Background()
	h.trader.HandleNewPool(ctx, testutil.PoolEvent("mint-token"))
	h.trader.dispatchBatch(ctx, "test")

	buys, _ := h.executor.counts()
	assert.Zero(t, buys)
	_, held := h.strategy.Position("mint-token")
	assert.False(t, held)
}

func TestExecuteBuy_AllocationExhaustedSkips(t *testing.T) {
	h := newTestTrader(t)
	// 10% cap on 1000 funds fully allocated.
	h.risk.AddAllocation("mint-token", 100)

	ctx := context.Background()
	h.trader.HandleNewPool(ctx, testutil.PoolEvent("mint-token"))
	h.trader.dispatchBatch(ctx, "test")

	buys, _ := h.executor.counts()
	assert.Zero(t, buys)
}

func TestExecuteBuy_FailureReleasesAllocation(t *testing.T) {
	h := newTestTrader(t)
	h.executor.buyErr = errors.New("submission failed")

	ctx := context.Background()
	h.trader.HandleNewPool(ctx, testutil.PoolEvent("mint-token"))
	h.trader.dispatchBatch(ctx, "test")

	buys, _ := h.executor.counts()
	require.Equal(t, 1, buys)

	_, held := h.strategy.Position("mint-token")
	assert.False(t, held)

	// The reserved allocation was released, so a later buy still sizes.
	assert.Greater(t, h.risk.CalculateTradeAmount("mint-token", 1000), 0.0)
}

func TestExecuteBuy_DuplicatePositionReturnsReservation(t *testing.T) {
	h := newTestTrader(t)
	ctx := context.Background()

	// Leave room for exactly one 5.0 reservation under the 10% cap.
	h.risk.AddAllocation("mint-token", 95)

	// A rival buy for the same mint lands while ours is executing, so the
	// strategy keeps the rival's position and discards ours.
	rival := testutil.BuyOpportunity("mint-token", 0.001, 0.9, 0.9)
	h.executor.mu.Lock()
	h.executor.onBuy = func() {
		h.strategy.HandleBuyResult(&types.TradeResult{
			Success:     true,
			Signature:   "sig-rival",
			TokenAmount: 5000,
			BaseAmount:  5,
			Price:       0.001,
			Timestamp:   time.Now(),
		}, rival)
	}
	h.executor.mu.Unlock()

	h.trader.HandleNewPool(ctx, testutil.PoolEvent("mint-token"))
	h.trader.dispatchBatch(ctx, "test")

	buys, _ := h.executor.counts()
	require.Equal(t, 1, buys)

	// The rival owns the position; our reservation must come back so the
	// cap is not saturated by funds no position holds.
	assert.InDelta(t, 5.0, h.risk.CalculateTradeAmount("mint-token", 1000), 1e-9)
}

func TestProcess_PendingGuardUnderConcurrency(t *testing.T) {
	h := newTestTrader(t)
	h.executor.delay = 20 * time.Millisecond

	opp := testutil.BuyOpportunity("mint-token", 0.001, 0.9, 0.9)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.trader.process(context.Background(), opp)
		}()
	}
	wg.Wait()

	// Identical keys: exactly one execution goes through.
	buys, _ := h.executor.counts()
	assert.Equal(t, 1, buys)
}

func TestPriceCallback_TriggersTakeProfitSell(t *testing.T) {
	h := newTestTrader(t)
	ctx := context.Background()

	h.trader.HandleNewPool(ctx, testutil.PoolEvent("mint-token"))
	h.trader.dispatchBatch(ctx, "test")

	cb, ok := h.watcher.callback("mint-token")
	require.True(t, ok)

	// +25% clears the default 20% take-profit. The sell runs off the
	// callback goroutine, so give it a moment to land.
	cb("mint-token", 0.00125)

	require.Eventually(t, func() bool {
		_, sells := h.executor.counts()
		return sells == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_, held := h.strategy.Position("mint-token")
		return !held
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, h.watcher.unwatched, "mint-token")

	// Allocation freed for the next opportunity on this token.
	assert.Greater(t, h.risk.CalculateTradeAmount("mint-token", 1000), 0.0)
}

func TestPriceCallback_SlowSellDoesNotBlockCallback(t *testing.T) {
	h := newTestTrader(t)
	ctx := context.Background()

	h.trader.HandleNewPool(ctx, testutil.PoolEvent("mint-token"))
	h.trader.dispatchBatch(ctx, "test")

	h.executor.mu.Lock()
	h.executor.delay = 500 * time.Millisecond
	h.executor.mu.Unlock()

	cb, ok := h.watcher.callback("mint-token")
	require.True(t, ok)

	// The callback must return long before the slow submission finishes,
	// otherwise every other watched token's refresh would stall behind it.
	start := time.Now()
	cb("mint-token", 0.00125)
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	// A repeat trigger while the sell is in flight is deduplicated.
	cb("mint-token", 0.00130)

	require.Eventually(t, func() bool {
		_, sells := h.executor.counts()
		return sells == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_, held := h.strategy.Position("mint-token")
		return !held
	}, 2*time.Second, 10*time.Millisecond)

	_, sells := h.executor.counts()
	assert.Equal(t, 1, sells)
}

func TestPriceCallback_NoTriggerHoldsPosition(t *testing.T) {
	h := newTestTrader(t)
	ctx := context.Background()

	h.trader.HandleNewPool(ctx, testutil.PoolEvent("mint-token"))
	h.trader.dispatchBatch(ctx, "test")

	cb, ok := h.watcher.callback("mint-token")
	require.True(t, ok)

	// +5% is inside both default conditions.
	cb("mint-token", 0.00105)

	_, sells := h.executor.counts()
	assert.Zero(t, sells)
	_, held := h.strategy.Position("mint-token")
	assert.True(t, held)
}

func TestHeal_ResetsStuckExecutingFlag(t *testing.T) {
	h := newTestTrader(t)

	h.trader.executing.Store(h.trader.execSeq.Add(1))
	h.trader.lastProgress.Store(time.Now().Add(-2 * time.Minute).UnixNano())
	h.trader.beat.Store(time.Now().UnixNano())

	h.trader.heal(context.Background())

	assert.Zero(t, h.trader.executing.Load())
}

func TestHeal_StaleBatchReleaseKeepsNewOwner(t *testing.T) {
	h := newTestTrader(t)

	stale := h.trader.execSeq.Add(1)
	h.trader.executing.Store(stale)
	h.trader.lastProgress.Store(time.Now().Add(-2 * time.Minute).UnixNano())
	h.trader.beat.Store(time.Now().UnixNano())

	h.trader.heal(context.Background())
	require.Zero(t, h.trader.executing.Load())

	// A fresh batch claims the flag after the reset.
	fresh := h.trader.execSeq.Add(1)
	require.True(t, h.trader.executing.CompareAndSwap(0, fresh))

	// The stalled batch finally finishes; its deferred release must not
	// clear the fresh batch's claim.
	h.trader.executing.CompareAndSwap(stale, 0)
	assert.Equal(t, fresh, h.trader.executing.Load())
}

func TestHeal_PurgesStalePending(t *testing.T) {
	h := newTestTrader(t)

	h.trader.pending.tryAcquire("pool-stale:buy")
	h.trader.pending.entries["pool-stale:buy"] = time.Now().Add(-10 * time.Minute)
	h.trader.beat.Store(time.Now().UnixNano())

	h.trader.heal(context.Background())

	assert.True(t, h.trader.pending.tryAcquire("pool-stale:buy"))
}

func TestHeal_RestartsStaleDispatchLoop(t *testing.T) {
	h := newTestTrader(t)

	before := h.trader.loopGen.Load()
	h.trader.beat.Store(time.Now().Add(-time.Hour).UnixNano())

	h.trader.heal(context.Background())

	assert.Equal(t, before+1, h.trader.loopGen.Load())

	// Shut the restarted loop down cleanly.
	h.trader.Close()
}

func TestStartClose_Lifecycle(t *testing.T) {
	h := newTestTrader(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, h.trader.Start(ctx))
	h.trader.Close()
}

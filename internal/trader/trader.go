package trader

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mkudasov/soltrader/internal/pricing"
	"github.com/mkudasov/soltrader/internal/risk"
	"github.com/mkudasov/soltrader/internal/storage"
	"github.com/mkudasov/soltrader/internal/strategy"
	"github.com/mkudasov/soltrader/pkg/types"
)

// OpportunityDetector scores a pool event into a buy opportunity.
// Returns (nil, nil) when the event is not interesting.
type OpportunityDetector interface {
	Detect(ctx context.Context, event *types.PoolEvent) (*types.Opportunity, error)
}

// TokenValidator is the external token safety check.
type TokenValidator interface {
	Validate(ctx context.Context, tokenMint string) (*types.TokenValidationResult, error)
}

// RiskChecker is the external compliance/risk check.
type RiskChecker interface {
	Check(ctx context.Context, tokenMint string) (*types.RiskCheckResult, error)
}

// Executor runs trades. The execution package implements this.
type Executor interface {
	ExecuteBuy(ctx context.Context, opp *types.Opportunity, baseAmount float64) *types.TradeResult
	ExecuteSell(ctx context.Context, opp *types.Opportunity) *types.TradeResult
}

// PriceWatcher manages the polling watch set. The pricing scheduler
// implements this.
type PriceWatcher interface {
	Watch(tokenMint string, cb pricing.Callback)
	Unwatch(tokenMint string)
}

// TradingGate can halt new buys. The balance circuit breaker implements
// this.
type TradingGate interface {
	IsEnabled() bool
	RecordTrade(tradeSize float64)
}

// BalanceProvider reads the trading wallet balance.
type BalanceProvider interface {
	GetBalance(ctx context.Context, pubkey string) (float64, error)
}

// Trader is the top-level orchestrator: it turns pool events into
// queued opportunities, dispatches batches to execution, and drives the
// sell side through price callbacks. All position mutations go through
// the strategy manager; the trader owns the queue, the pending set and
// the event bus.
type Trader struct {
	logger    *zap.Logger
	detector  OpportunityDetector
	validator TokenValidator
	riskCheck RiskChecker
	strategy  *strategy.Manager
	risk      *risk.Adjuster
	gate      TradingGate
	executor  Executor
	store     storage.Storage
	prices    PriceWatcher
	balance   BalanceProvider
	pubkey    string
	poolFeed  <-chan *types.PoolEvent

	queue   *OpportunityQueue
	pending *pendingSet
	bus     *EventBus

	batchSize       int
	batchInterval   time.Duration
	healInterval    time.Duration
	stuckResetAfter time.Duration
	pendingTimeout  time.Duration

	runCtx  context.Context
	kick    chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
	loopGen atomic.Int64
	beat    atomic.Int64
	// executing holds the token of the in-flight batch, 0 when idle.
	// Tokens let the self-heal pass release a stalled batch without the
	// stalled batch's own deferred release clearing a later batch's claim.
	executing    atomic.Int64
	execSeq      atomic.Int64
	lastProgress atomic.Int64
}

// Config holds trader configuration.
type Config struct {
	Detector  OpportunityDetector
	Validator TokenValidator
	RiskCheck RiskChecker
	Strategy  *strategy.Manager
	Risk      *risk.Adjuster
	Gate      TradingGate
	Executor  Executor
	Store     storage.Storage
	Prices    PriceWatcher
	Balance   BalanceProvider
	// Pubkey is the trading wallet address used for balance reads.
	Pubkey string
	// PoolFeed delivers pool events; nil when events are injected via
	// HandleNewPool directly.
	PoolFeed <-chan *types.PoolEvent

	QueueMaxSize    int
	BatchSize       int
	BatchInterval   time.Duration
	HealInterval    time.Duration
	StuckResetAfter time.Duration
	PendingTimeout  time.Duration

	Logger *zap.Logger
}

// New creates a trader.
func New(cfg *Config) (*Trader, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Detector == nil {
		return nil, fmt.Errorf("detector cannot be nil")
	}
	if cfg.Validator == nil {
		return nil, fmt.Errorf("validator cannot be nil")
	}
	if cfg.RiskCheck == nil {
		return nil, fmt.Errorf("risk checker cannot be nil")
	}
	if cfg.Strategy == nil {
		return nil, fmt.Errorf("strategy manager cannot be nil")
	}
	if cfg.Risk == nil {
		return nil, fmt.Errorf("risk adjuster cannot be nil")
	}
	if cfg.Gate == nil {
		return nil, fmt.Errorf("trading gate cannot be nil")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if cfg.Prices == nil {
		return nil, fmt.Errorf("price watcher cannot be nil")
	}
	if cfg.Balance == nil {
		return nil, fmt.Errorf("balance provider cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if cfg.BatchInterval <= 0 {
		return nil, fmt.Errorf("batch interval must be positive")
	}

	healInterval := cfg.HealInterval
	if healInterval <= 0 {
		healInterval = 5 * time.Minute
	}
	stuckResetAfter := cfg.StuckResetAfter
	if stuckResetAfter <= 0 {
		stuckResetAfter = time.Minute
	}
	pendingTimeout := cfg.PendingTimeout
	if pendingTimeout <= 0 {
		pendingTimeout = 5 * time.Minute
	}

	return &Trader{
		logger:          cfg.Logger,
		detector:        cfg.Detector,
		validator:       cfg.Validator,
		riskCheck:       cfg.RiskCheck,
		strategy:        cfg.Strategy,
		risk:            cfg.Risk,
		gate:            cfg.Gate,
		executor:        cfg.Executor,
		store:           cfg.Store,
		prices:          cfg.Prices,
		balance:         cfg.Balance,
		pubkey:          cfg.Pubkey,
		poolFeed:        cfg.PoolFeed,
		queue:           NewOpportunityQueue(cfg.QueueMaxSize),
		pending:         newPendingSet(),
		bus:             NewEventBus(cfg.Logger),
		batchSize:       cfg.BatchSize,
		batchInterval:   cfg.BatchInterval,
		healInterval:    healInterval,
		stuckResetAfter: stuckResetAfter,
		pendingTimeout:  pendingTimeout,
		kick:            make(chan struct{}, 1),
		stop:            make(chan struct{}),
	}, nil
}

// Events exposes the lifecycle event bus.
func (t *Trader) Events() *EventBus {
	return t.bus
}

// Start restores persisted positions, re-arms their price watches and
// launches the dispatch, feed and self-heal loops.
func (t *Trader) Start(ctx context.Context) error {
	t.runCtx = ctx

	restored, err := t.strategy.Restore(ctx)
	if err != nil {
		t.logger.Warn("position-restore-failed", zap.Error(err))
	} else if restored > 0 {
		t.logger.Info("positions-restored", zap.Int("count", restored))
	}

	for _, snap := range t.strategy.Positions() {
		t.prices.Watch(snap.TokenMint, t.onPriceUpdate)
	}

	t.beat.Store(time.Now().UnixNano())
	t.lastProgress.Store(time.Now().UnixNano())

	t.startDispatchLoop(ctx)

	if t.poolFeed != nil {
		t.wg.Add(1)
		go t.feedLoop(ctx)
	}

	t.wg.Add(1)
	go t.healLoop(ctx)

	t.logger.Info("trader-started",
		zap.Int("batch_size", t.batchSize),
		zap.Duration("batch_interval", t.batchInterval),
		zap.Duration("heal_interval", t.healInterval))

	return nil
}

// Close stops all loops and closes the event bus. In-flight executions
// are interrupted by the run context's cancellation.
func (t *Trader) Close() {
	close(t.stop)
	t.wg.Wait()
	t.bus.Close()
	t.logger.Info("trader-stopped")
}

func (t *Trader) feedLoop(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case event, ok := <-t.poolFeed:
			if !ok {
				t.logger.Warn("pool-feed-closed")
				return
			}
			t.HandleNewPool(ctx, event)
		}
	}
}

// HandleNewPool runs the detection pipeline for one pool event:
// detector, token validator, risk check, strategy eligibility, enqueue.
// Rejections are terminal for the event; errors are logged and never
// crash the orchestrator.
func (t *Trader) HandleNewPool(ctx context.Context, event *types.PoolEvent) {
	opp, err := t.detector.Detect(ctx, event)
	if err != nil {
		OpportunitiesTotal.WithLabelValues("detector_error").Inc()
		t.logger.Warn("detector-failed",
			zap.String("pool", event.PoolAddress),
			zap.Error(err))
		t.publishError(err)
		return
	}
	if opp == nil {
		OpportunitiesTotal.WithLabelValues("not_interesting").Inc()
		return
	}

	validation, err := t.validator.Validate(ctx, opp.TokenMint)
	if err != nil {
		OpportunitiesTotal.WithLabelValues("validator_error").Inc()
		t.logger.Warn("token-validation-failed",
			zap.String("mint", opp.TokenMint),
			zap.Error(err))
		return
	}
	if !validation.IsValid {
		OpportunitiesTotal.WithLabelValues("validation_rejected").Inc()
		t.publishError(&types.ValidationRejectedError{Token: opp.TokenMint, Reason: validation.Reason})
		return
	}

	riskResult, err := t.riskCheck.Check(ctx, opp.TokenMint)
	if err != nil {
		OpportunitiesTotal.WithLabelValues("risk_check_error").Inc()
		t.logger.Warn("risk-check-failed",
			zap.String("mint", opp.TokenMint),
			zap.Error(err))
		return
	}
	if !riskResult.Passed {
		OpportunitiesTotal.WithLabelValues("risk_rejected").Inc()
		t.publishError(&types.ValidationRejectedError{Token: opp.TokenMint, Reason: riskResult.Reason})
		return
	}

	if !t.strategy.ShouldBuy(opp) {
		OpportunitiesTotal.WithLabelValues("strategy_rejected").Inc()
		return
	}

	depth := t.queue.Push(opp)
	OpportunitiesTotal.WithLabelValues("enqueued").Inc()

	t.bus.Publish(&types.Event{Kind: types.EventOpportunityDetected, Opportunity: opp})

	t.logger.Info("opportunity-enqueued",
		zap.String("mint", opp.TokenMint),
		zap.String("pool", opp.PoolAddress),
		zap.Float64("priority", opp.PriorityScore),
		zap.Int("queue_depth", depth))

	if depth >= t.batchSize {
		select {
		case t.kick <- struct{}{}:
		default:
		}
	}
}

func (t *Trader) startDispatchLoop(ctx context.Context) {
	gen := t.loopGen.Add(1)

	t.wg.Add(1)
	go t.dispatchLoop(ctx, gen)
}

func (t *Trader) dispatchLoop(ctx context.Context, gen int64) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.batchInterval)
	defer ticker.Stop()

	for {
		// A healed restart supersedes this loop.
		if t.loopGen.Load() != gen {
			return
		}
		t.beat.Store(time.Now().UnixNano())

		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.dispatchBatch(ctx, "interval")
		case <-t.kick:
			t.dispatchBatch(ctx, "threshold")
		}
	}
}

// dispatchBatch pops up to batchSize opportunities and processes them
// concurrently. One in-flight batch at a time; a batch that makes no
// progress for too long is recovered by the self-heal pass.
func (t *Trader) dispatchBatch(ctx context.Context, trigger string) {
	token := t.execSeq.Add(1)
	if !t.executing.CompareAndSwap(0, token) {
		return
	}
	defer t.executing.CompareAndSwap(token, 0)

	batch := t.queue.PopBatch(t.batchSize)
	if len(batch) == 0 {
		return
	}

	BatchesTotal.WithLabelValues(trigger).Inc()
	t.lastProgress.Store(time.Now().UnixNano())

	t.logger.Debug("batch-dispatching",
		zap.String("trigger", trigger),
		zap.Int("size", len(batch)))

	g, gctx := errgroup.WithContext(ctx)
	for _, opp := range batch {
		opp := opp
		g.Go(func() error {
			// One pick's failure never aborts the batch.
			t.process(gctx, opp)
			return nil
		})
	}
	_ = g.Wait()
}

// process executes one opportunity under the pending-trade guard.
func (t *Trader) process(ctx context.Context, opp *types.Opportunity) {
	key := opp.Key()
	if !t.pending.tryAcquire(key) {
		DedupSkipsTotal.Inc()
		t.logger.Debug("duplicate-opportunity-skipped", zap.String("key", key))
		return
	}
	defer t.pending.release(key)
	defer t.lastProgress.Store(time.Now().UnixNano())

	switch opp.Action {
	case types.ActionBuy:
		t.executeBuy(ctx, opp)
	case types.ActionSell:
		t.executeSell(ctx, opp)
	default:
		t.logger.Warn("unknown-action-dropped", zap.String("action", string(opp.Action)))
	}
}

func (t *Trader) executeBuy(ctx context.Context, opp *types.Opportunity) {
	if !t.gate.IsEnabled() {
		OpportunitiesTotal.WithLabelValues("breaker_halted").Inc()
		t.logger.Warn("buy-halted-by-circuit-breaker", zap.String("mint", opp.TokenMint))
		return
	}

	// Re-check eligibility: a position may have opened since enqueue.
	if !t.strategy.ShouldBuy(opp) {
		OpportunitiesTotal.WithLabelValues("strategy_rejected").Inc()
		return
	}

	funds, err := t.balance.GetBalance(ctx, t.pubkey)
	if err != nil {
		t.logger.Error("balance-read-failed", zap.Error(err))
		t.publishError(fmt.Errorf("read balance: %w", err))
		return
	}

	amount := t.risk.CalculateTradeAmount(opp.TokenMint, funds)
	if amount <= 0 {
		// Allocation exhausted is a skip, not a failure.
		OpportunitiesTotal.WithLabelValues("allocation_exhausted").Inc()
		t.logger.Debug("buy-skipped-allocation-exhausted",
			zap.String("mint", opp.TokenMint),
			zap.Float64("funds", funds))
		return
	}

	// Reserve before executing so concurrent picks cannot overallocate.
	t.risk.AddAllocation(opp.TokenMint, amount)

	trade := &types.Trade{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Type:         types.ActionBuy,
		TokenAddress: opp.TokenMint,
		Amount:       int64(math.Round(amount / opp.EstimatedPrice)),
		Price:        opp.EstimatedPrice,
		Value:        amount,
		Status:       types.TradeStatusPending,
	}
	t.appendTrade(ctx, trade)

	result := t.executor.ExecuteBuy(ctx, opp, amount)
	t.risk.RecordOutcome(opp.TokenMint, result.Success)

	if !result.Success {
		t.risk.ReduceAllocation(opp.TokenMint, amount)
		t.updateTrade(ctx, trade.ID, types.TradeStatusFailed, "", errString(result.Err))
		t.logger.Warn("buy-failed",
			zap.String("mint", opp.TokenMint),
			zap.Error(result.Err))
		t.publishError(result.Err)
		return
	}

	t.gate.RecordTrade(amount)
	t.updateTrade(ctx, trade.ID, types.TradeStatusCompleted, result.Signature, "")

	snap := t.strategy.HandleBuyResult(result, opp)
	if snap == nil {
		// A concurrent buy for the same mint won the position. Return the
		// reservation so the token's budget is not charged twice.
		t.risk.ReduceAllocation(opp.TokenMint, amount)
	} else {
		t.prices.Watch(opp.TokenMint, t.onPriceUpdate)
		t.bus.Publish(&types.Event{Kind: types.EventPositionUpdated, Position: snap})
	}

	t.bus.Publish(&types.Event{Kind: types.EventTradeExecuted, TradeResult: result})
}

func (t *Trader) executeSell(ctx context.Context, opp *types.Opportunity) {
	var profit float64
	if snap, held := t.strategy.Position(opp.TokenMint); held {
		profit = (opp.EstimatedPrice - snap.AvgBuyPrice) * float64(snap.Amount)
	}

	trade := &types.Trade{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Type:         types.ActionSell,
		TokenAddress: opp.TokenMint,
		Amount:       opp.SellAmount,
		Price:        opp.EstimatedPrice,
		Value:        float64(opp.SellAmount) * opp.EstimatedPrice,
		Profit:       profit,
		Status:       types.TradeStatusPending,
	}
	t.appendTrade(ctx, trade)

	result := t.executor.ExecuteSell(ctx, opp)
	t.risk.RecordOutcome(opp.TokenMint, result.Success)

	if !result.Success {
		t.updateTrade(ctx, trade.ID, types.TradeStatusFailed, "", errString(result.Err))
		t.logger.Warn("sell-failed",
			zap.String("mint", opp.TokenMint),
			zap.Error(result.Err))
		t.publishError(result.Err)
		return
	}

	t.updateTrade(ctx, trade.ID, types.TradeStatusCompleted, result.Signature, "")

	if t.strategy.HandleSellResult(result, opp.TokenMint) {
		t.prices.Unwatch(opp.TokenMint)
		t.risk.ReleaseAllocation(opp.TokenMint)
	}

	t.bus.Publish(&types.Event{Kind: types.EventTradeExecuted, TradeResult: result})
}

// onPriceUpdate is the callback chain driving the sell side: update the
// position, evaluate sell conditions, and hand a triggered sell off for
// execution. The callback itself stays cheap so one token's slow
// submission never stalls price refreshes for the rest of the watch set;
// the pending set keeps at most one sell in flight per pool.
func (t *Trader) onPriceUpdate(tokenMint string, price float64) {
	t.bus.Publish(&types.Event{
		Kind:  types.EventPriceUpdated,
		Price: &types.PriceUpdate{TokenMint: tokenMint, Price: price},
	})

	decision := t.strategy.ShouldSell(tokenMint, price)
	if decision.Position != nil {
		t.bus.Publish(&types.Event{Kind: types.EventPositionUpdated, Position: decision.Position})
	}
	if !decision.ShouldSell {
		return
	}

	opp, ok := t.strategy.SellOrder(tokenMint, price)
	if !ok {
		t.logger.Warn("sell-triggered-without-routing", zap.String("mint", tokenMint))
		return
	}

	key := opp.Key()
	if !t.pending.tryAcquire(key) {
		DedupSkipsTotal.Inc()
		return
	}

	ctx := t.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	// Execute off the polling goroutine. The pending guard is held until
	// the sell finishes, so repeat triggers from later price updates are
	// deduplicated, and shutdown interrupts the sell via the run context.
	go func() {
		defer t.pending.release(key)
		t.executeSell(ctx, opp)
	}()
}

func (t *Trader) appendTrade(ctx context.Context, trade *types.Trade) {
	if err := t.store.AppendTrade(ctx, trade); err != nil {
		t.logger.Warn("trade-append-failed",
			zap.String("trade-id", trade.ID),
			zap.Error(err))
	}
}

func (t *Trader) updateTrade(ctx context.Context, tradeID string, status types.TradeStatus, txID, errMsg string) {
	if err := t.store.UpdateTradeStatus(ctx, tradeID, status, txID, errMsg); err != nil {
		t.logger.Warn("trade-update-failed",
			zap.String("trade-id", tradeID),
			zap.Error(err))
	}
}

func (t *Trader) publishError(err error) {
	if err == nil {
		return
	}
	t.bus.Publish(&types.Event{Kind: types.EventErrorOccurred, Err: err})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

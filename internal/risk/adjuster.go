package risk

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// minOutcomesForAdjustment is the minimum number of recorded outcomes
// before the rolling success rate is considered meaningful.
const minOutcomesForAdjustment = 10

type outcome struct {
	tokenMint  string
	success    bool
	recordedAt time.Time
}

// Adjuster recomputes per-token and aggregate risk budgets from rolling
// trade outcomes on a fixed interval, and sizes trades from the resulting
// risk levels.
type Adjuster struct {
	logger *zap.Logger

	interval    time.Duration
	windowSize  int
	maxPerToken float64
	minPerToken float64
	maxTotal    float64
	minTotal    float64
	step        float64
	maxAlloc    float64 // max fraction of funds allocated to one token

	mu           sync.Mutex
	riskPerToken float64 // default per-token risk level
	totalRisk    float64
	tokenRisk    map[string]float64
	outcomes     []outcome
	allocations  map[string]float64 // base token currently allocated per token

	wg sync.WaitGroup
}

// Config holds risk adjuster configuration.
type Config struct {
	AdjustInterval        time.Duration
	WindowSize            int
	MaxRiskPerToken       float64
	MinRiskPerToken       float64
	MaxTotalRisk          float64
	MinTotalRisk          float64
	Step                  float64
	MaxAllocationPerToken float64
	Logger                *zap.Logger
}

// New creates a new risk adjuster. Risk levels start at the configured
// minima and drift upward only as trades succeed.
func New(cfg *Config) *Adjuster {
	return &Adjuster{
		logger:       cfg.Logger,
		interval:     cfg.AdjustInterval,
		windowSize:   cfg.WindowSize,
		maxPerToken:  cfg.MaxRiskPerToken,
		minPerToken:  cfg.MinRiskPerToken,
		maxTotal:     cfg.MaxTotalRisk,
		minTotal:     cfg.MinTotalRisk,
		step:         cfg.Step,
		maxAlloc:     cfg.MaxAllocationPerToken,
		riskPerToken: cfg.MinRiskPerToken,
		totalRisk:    cfg.MinTotalRisk,
		tokenRisk:    make(map[string]float64),
		allocations:  make(map[string]float64),
	}
}

// Start runs the periodic adjustment loop until the context is cancelled.
func (a *Adjuster) Start(ctx context.Context) {
	a.logger.Info("risk-adjuster-starting",
		zap.Duration("interval", a.interval),
		zap.Int("window-size", a.windowSize),
		zap.Float64("risk-per-token", a.riskPerToken),
		zap.Float64("total-risk", a.totalRisk))

	a.wg.Add(1)
	go a.adjustLoop(ctx)
}

func (a *Adjuster) adjustLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("risk-adjuster-stopping")
			return
		case <-ticker.C:
			a.Adjust()
		}
	}
}

// RecordOutcome appends a trade outcome to the rolling window.
func (a *Adjuster) RecordOutcome(tokenMint string, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.outcomes = append(a.outcomes, outcome{
		tokenMint:  tokenMint,
		success:    success,
		recordedAt: time.Now(),
	})
	if len(a.outcomes) > a.windowSize {
		a.outcomes = a.outcomes[len(a.outcomes)-a.windowSize:]
	}

	if success {
		TradeOutcomesTotal.WithLabelValues("success").Inc()
	} else {
		TradeOutcomesTotal.WithLabelValues("failure").Inc()
	}
}

// Adjust recomputes risk levels from the rolling success rate. Success
// above 80% steps budgets up toward the configured maxima; below 50% steps
// them down toward the minima. Per-token levels drift the same way based on
// that token's own outcomes.
func (a *Adjuster) Adjust() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.outcomes) < minOutcomesForAdjustment {
		return
	}

	successes := 0
	perToken := make(map[string][2]int) // successes, total
	for _, o := range a.outcomes {
		counts := perToken[o.tokenMint]
		counts[1]++
		if o.success {
			successes++
			counts[0]++
		}
		perToken[o.tokenMint] = counts
	}

	rate := float64(successes) / float64(len(a.outcomes))

	switch {
	case rate > 0.8:
		a.riskPerToken = clamp(a.riskPerToken+a.step, a.minPerToken, a.maxPerToken)
		a.totalRisk = clamp(a.totalRisk+a.step, a.minTotal, a.maxTotal)
		AdjustmentsTotal.WithLabelValues("up").Inc()
	case rate < 0.5:
		a.riskPerToken = clamp(a.riskPerToken-a.step, a.minPerToken, a.maxPerToken)
		a.totalRisk = clamp(a.totalRisk-a.step, a.minTotal, a.maxTotal)
		AdjustmentsTotal.WithLabelValues("down").Inc()
	}

	for mint, counts := range perToken {
		tokenRate := float64(counts[0]) / float64(counts[1])
		level, ok := a.tokenRisk[mint]
		if !ok {
			level = a.riskPerToken
		}

		switch {
		case tokenRate > 0.8:
			level = clamp(level+a.step, a.minPerToken, a.maxPerToken)
		case tokenRate < 0.5:
			level = clamp(level-a.step, a.minPerToken, a.maxPerToken)
		}
		a.tokenRisk[mint] = level
	}

	RiskPerTokenLevel.Set(a.riskPerToken)
	TotalRiskLevel.Set(a.totalRisk)

	a.logger.Info("risk-levels-adjusted",
		zap.Float64("success-rate", rate),
		zap.Int("window", len(a.outcomes)),
		zap.Float64("risk-per-token", a.riskPerToken),
		zap.Float64("total-risk", a.totalRisk))
}

// CalculateTradeAmount sizes a buy in base-token terms:
// min(remaining allocation for the token, availableFunds * riskLevel).
// Returns 0 when the token's allocation is saturated, which callers treat
// as a skip rather than an error.
func (a *Adjuster) CalculateTradeAmount(tokenMint string, availableFunds float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if availableFunds <= 0 {
		return 0
	}

	level, ok := a.tokenRisk[tokenMint]
	if !ok {
		level = a.riskPerToken
	}

	remaining := a.maxAlloc*availableFunds - a.allocations[tokenMint]
	if remaining <= 0 {
		return 0
	}

	amount := availableFunds * level
	if amount > remaining {
		amount = remaining
	}

	return amount
}

// AddAllocation records base funds committed to a token position.
func (a *Adjuster) AddAllocation(tokenMint string, amount float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.allocations[tokenMint] += amount
}

// ReduceAllocation returns a reservation that never became part of a
// position, leaving whatever other positions hold on the token intact.
func (a *Adjuster) ReduceAllocation(tokenMint string, amount float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.allocations[tokenMint] -= amount
	if a.allocations[tokenMint] <= 0 {
		delete(a.allocations, tokenMint)
	}
}

// ReleaseAllocation frees the allocation when a position closes.
func (a *Adjuster) ReleaseAllocation(tokenMint string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.allocations, tokenMint)
}

// Levels returns the current default per-token and total risk levels.
func (a *Adjuster) Levels() (perToken, total float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.riskPerToken, a.totalRisk
}

// Close waits for the adjustment loop to drain.
func (a *Adjuster) Close() error {
	a.wg.Wait()
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkudasov/soltrader/pkg/types"
	"go.uber.org/zap"
)

const priceHistoryLimit = 100

// SnapshotStore persists position snapshots so open positions survive a
// restart. Implementations must tolerate being called concurrently.
type SnapshotStore interface {
	Save(ctx context.Context, snap *types.PositionSnapshot) error
	Delete(ctx context.Context, tokenMint string) error
	List(ctx context.Context) ([]*types.PositionSnapshot, error)
}

// Manager owns open positions and all buy/sell decisioning. No other
// component mutates position state; every mutation goes through the methods
// below, guarded by one mutex.
type Manager struct {
	mu         sync.Mutex
	logger     *zap.Logger
	buyEnabled bool
	minConf    float64
	minScore   float64
	conditions []Condition

	positions map[string]*Position
	highWater map[string]float64
	history   map[string][]float64

	snapshots SnapshotStore // optional
}

// Config holds strategy manager configuration.
type Config struct {
	BuyEnabled       bool
	MinConfidence    float64
	MinPriorityScore float64
	Conditions       []Condition
	SnapshotStore    SnapshotStore
	Logger           *zap.Logger
}

// New creates a new strategy manager. An empty condition list is seeded
// with the default take-profit/stop-loss pair.
func New(cfg *Config) *Manager {
	conditions := cfg.Conditions
	if len(conditions) == 0 {
		conditions = DefaultConditions()
		cfg.Logger.Info("sell-conditions-defaulted",
			zap.Float64("take-profit-pct", conditions[0].Percentage),
			zap.Float64("stop-loss-pct", conditions[1].Percentage))
	}

	return &Manager{
		logger:     cfg.Logger,
		buyEnabled: cfg.BuyEnabled,
		minConf:    cfg.MinConfidence,
		minScore:   cfg.MinPriorityScore,
		conditions: conditions,
		positions:  make(map[string]*Position),
		highWater:  make(map[string]float64),
		history:    make(map[string][]float64),
		snapshots:  cfg.SnapshotStore,
	}
}

// ShouldBuy reports whether an opportunity is eligible for execution.
// It has no side effects.
func (m *Manager) ShouldBuy(opp *types.Opportunity) bool {
	if !m.buyEnabled {
		BuyRejectedTotal.WithLabelValues("buy_disabled").Inc()
		return false
	}

	m.mu.Lock()
	_, held := m.positions[opp.TokenMint]
	m.mu.Unlock()

	if held {
		BuyRejectedTotal.WithLabelValues("position_exists").Inc()
		m.logger.Debug("buy-rejected-position-exists",
			zap.String("token-mint", opp.TokenMint))
		return false
	}

	if opp.PriorityScore < m.minScore {
		BuyRejectedTotal.WithLabelValues("low_priority").Inc()
		return false
	}

	if opp.Confidence < m.minConf {
		BuyRejectedTotal.WithLabelValues("low_confidence").Inc()
		return false
	}

	return true
}

// HandleBuyResult opens a position for a successful buy and returns its
// snapshot. Failed buys perform no mutation and return nil.
func (m *Manager) HandleBuyResult(result *types.TradeResult, opp *types.Opportunity) *types.PositionSnapshot {
	if result == nil || !result.Success {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.positions[opp.TokenMint]; held {
		// ShouldBuy guards against this; a duplicate here means two buys
		// raced past the pending set, so keep the first position intact.
		m.logger.Warn("duplicate-buy-result-ignored",
			zap.String("token-mint", opp.TokenMint))
		return nil
	}

	pos := &Position{
		TokenMint:    opp.TokenMint,
		PoolAddress:  opp.PoolAddress,
		Dex:          opp.Dex,
		BaseMint:     opp.BaseMint,
		Amount:       result.TokenAmount,
		AvgBuyPrice:  opp.EstimatedPrice,
		CurrentPrice: opp.EstimatedPrice,
		CostBasis:    opp.EstimatedPrice * float64(result.TokenAmount),
		LastUpdated:  time.Now(),
	}

	m.positions[opp.TokenMint] = pos
	m.highWater[opp.TokenMint] = opp.EstimatedPrice
	PositionsOpen.Set(float64(len(m.positions)))

	m.logger.Info("position-opened",
		zap.String("token-mint", pos.TokenMint),
		zap.Int64("amount", pos.Amount),
		zap.Float64("avg-buy-price", pos.AvgBuyPrice),
		zap.String("signature", result.Signature))

	snap := pos.Snapshot()
	m.saveSnapshot(snap)

	return snap
}

// ShouldSell evaluates sell conditions for a token at the given price.
// It updates the trailing high-water mark and the bounded price history,
// then evaluates conditions in configured order; the first enabled
// condition that fires wins. Repeated calls with an unchanged price and
// position yield the same decision.
func (m *Manager) ShouldSell(tokenMint string, currentPrice float64) SellDecision {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, held := m.positions[tokenMint]
	if !held {
		return SellDecision{Reason: "no open position"}
	}

	high := m.highWater[tokenMint]
	if high == 0 {
		high = pos.AvgBuyPrice
	}
	if currentPrice > high {
		high = currentPrice
	}
	m.highWater[tokenMint] = high

	pos.CurrentPrice = currentPrice
	pos.ProfitLoss = (currentPrice - pos.AvgBuyPrice) * float64(pos.Amount)
	pos.ProfitLossPct = currentPrice/pos.AvgBuyPrice - 1

	hist := append(m.history[tokenMint], currentPrice)
	if len(hist) > priceHistoryLimit {
		hist = hist[len(hist)-priceHistoryLimit:]
	}
	m.history[tokenMint] = hist

	decision := SellDecision{
		Position:  pos.Snapshot(),
		SellPrice: currentPrice,
		Profit:    pos.ProfitLoss,
		ProfitPct: pos.ProfitLossPct,
	}

	for _, cond := range m.conditions {
		if !cond.Enabled {
			continue
		}

		triggered, reason := evaluate(cond, pos, currentPrice, high)
		if !triggered {
			continue
		}

		decision.ShouldSell = true
		decision.TriggerType = cond.Type
		decision.Reason = reason
		SellTriggersTotal.WithLabelValues(string(cond.Type)).Inc()

		m.logger.Info("sell-triggered",
			zap.String("token-mint", tokenMint),
			zap.String("trigger", string(cond.Type)),
			zap.String("reason", reason),
			zap.Float64("price", currentPrice),
			zap.Float64("profit", decision.Profit))

		return decision
	}

	decision.Reason = "no condition met"

	return decision
}

func evaluate(cond Condition, pos *Position, price, high float64) (bool, string) {
	switch cond.Type {
	case TakeProfit:
		profitPct := (price/pos.AvgBuyPrice - 1) * 100
		if profitPct >= cond.Percentage {
			return true, fmt.Sprintf("take profit reached: %.2f%% >= %.2f%%", profitPct, cond.Percentage)
		}
	case StopLoss:
		lossPct := (pos.AvgBuyPrice - price) / pos.AvgBuyPrice * 100
		if lossPct >= cond.Percentage {
			return true, fmt.Sprintf("stop loss reached: %.2f%% >= %.2f%%", lossPct, cond.Percentage)
		}
	case TrailingStop:
		dropPct := (high - price) / high * 100
		if dropPct >= cond.Percentage {
			return true, fmt.Sprintf("trailing stop reached: %.2f%% off high %.8f", dropPct, high)
		}
	case TimeLimit:
		if cond.TimeLimit > 0 && time.Since(pos.LastUpdated) >= cond.TimeLimit {
			return true, fmt.Sprintf("time limit reached: held longer than %s", cond.TimeLimit)
		}
	}

	return false, ""
}

// HandleSellResult closes the position for a successful sell, clearing the
// trailing and history state for the token. Returns whether a position was
// removed.
func (m *Manager) HandleSellResult(result *types.TradeResult, tokenMint string) bool {
	if result == nil || !result.Success {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pos, held := m.positions[tokenMint]
	if !held {
		return false
	}

	delete(m.positions, tokenMint)
	delete(m.highWater, tokenMint)
	delete(m.history, tokenMint)
	PositionsOpen.Set(float64(len(m.positions)))

	m.logger.Info("position-closed",
		zap.String("token-mint", tokenMint),
		zap.Float64("avg-buy-price", pos.AvgBuyPrice),
		zap.Float64("sell-price", result.Price),
		zap.Float64("realized-profit", (result.Price-pos.AvgBuyPrice)*float64(pos.Amount)),
		zap.String("signature", result.Signature))

	m.deleteSnapshot(tokenMint)

	return true
}

// SellOrder builds a sell opportunity for the full open position at the
// given price. Returns false when no position is held or the position
// predates this run and has no routing info.
func (m *Manager) SellOrder(tokenMint string, price float64) (*types.Opportunity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, held := m.positions[tokenMint]
	if !held || pos.PoolAddress == "" {
		return nil, false
	}

	return types.NewSellOpportunity(pos.PoolAddress, pos.Dex, pos.TokenMint, pos.BaseMint, price, pos.Amount), true
}

// Position returns a snapshot of the open position for a token, if any.
func (m *Manager) Position(tokenMint string) (*types.PositionSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, held := m.positions[tokenMint]
	if !held {
		return nil, false
	}

	return pos.Snapshot(), true
}

// Positions returns snapshots of all open positions.
func (m *Manager) Positions() []*types.PositionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snaps := make([]*types.PositionSnapshot, 0, len(m.positions))
	for _, pos := range m.positions {
		snaps = append(snaps, pos.Snapshot())
	}

	return snaps
}

// Restore reloads open positions from the snapshot store after a restart.
// Trailing high-water marks are reseeded from the restored current price so
// a trailing stop never references a stale high.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	if m.snapshots == nil {
		return 0, nil
	}

	snaps, err := m.snapshots.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, snap := range snaps {
		if _, held := m.positions[snap.TokenMint]; held {
			continue
		}

		m.positions[snap.TokenMint] = &Position{
			TokenMint:     snap.TokenMint,
			PoolAddress:   snap.PoolAddress,
			Dex:           snap.Dex,
			BaseMint:      snap.BaseMint,
			Amount:        snap.Amount,
			AvgBuyPrice:   snap.AvgBuyPrice,
			CurrentPrice:  snap.CurrentPrice,
			CostBasis:     snap.CostBasis,
			ProfitLoss:    snap.ProfitLoss,
			ProfitLossPct: snap.ProfitLossPct,
			LastUpdated:   snap.LastUpdated,
		}

		high := snap.CurrentPrice
		if snap.AvgBuyPrice > high {
			high = snap.AvgBuyPrice
		}
		m.highWater[snap.TokenMint] = high
	}

	PositionsOpen.Set(float64(len(m.positions)))

	return len(snaps), nil
}

func (m *Manager) saveSnapshot(snap *types.PositionSnapshot) {
	if m.snapshots == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.snapshots.Save(ctx, snap); err != nil {
		m.logger.Warn("position-snapshot-save-failed",
			zap.String("token-mint", snap.TokenMint),
			zap.Error(err))
	}
}

func (m *Manager) deleteSnapshot(tokenMint string) {
	if m.snapshots == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.snapshots.Delete(ctx, tokenMint); err != nil {
		m.logger.Warn("position-snapshot-delete-failed",
			zap.String("token-mint", tokenMint),
			zap.Error(err))
	}
}

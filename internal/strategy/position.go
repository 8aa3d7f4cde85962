package strategy

import (
	"time"

	"github.com/mkudasov/soltrader/pkg/types"
)

// Position is an open holding in a single token. Positions are owned
// exclusively by the Manager and keyed by token mint; at most one position
// per token exists at any time.
type Position struct {
	TokenMint     string
	PoolAddress   string
	Dex           string
	BaseMint      string
	Amount        int64 // token-native units, never negative
	AvgBuyPrice   float64
	CurrentPrice  float64
	CostBasis     float64
	ProfitLoss    float64
	ProfitLossPct float64
	LastUpdated   time.Time // set when the position is opened
}

// Snapshot returns an immutable copy safe to hand to event subscribers.
func (p *Position) Snapshot() *types.PositionSnapshot {
	return &types.PositionSnapshot{
		TokenMint:     p.TokenMint,
		PoolAddress:   p.PoolAddress,
		Dex:           p.Dex,
		BaseMint:      p.BaseMint,
		Amount:        p.Amount,
		AvgBuyPrice:   p.AvgBuyPrice,
		CurrentPrice:  p.CurrentPrice,
		CostBasis:     p.CostBasis,
		ProfitLoss:    p.ProfitLoss,
		ProfitLossPct: p.ProfitLossPct,
		LastUpdated:   p.LastUpdated,
	}
}

// SellDecision is the outcome of evaluating sell conditions against a
// position at a given price. It is a pure function of (position, price,
// conditions) apart from the trailing high-water update.
type SellDecision struct {
	ShouldSell  bool
	Reason      string
	TriggerType ConditionType
	Position    *types.PositionSnapshot
	SellPrice   float64
	Profit      float64
	ProfitPct   float64
}

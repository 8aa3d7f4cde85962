package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TradeAction indicates the direction of a candidate trade.
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// Opportunity is a candidate trade derived from an observed pool event.
// It is immutable once created and consumed exactly once by the queue.
type Opportunity struct {
	ID             string
	PoolAddress    string
	Dex            string
	TokenMint      string
	BaseMint       string
	EstimatedPrice float64
	Confidence     float64 // [0,1]
	PriorityScore  float64 // [0,1], used for both queue ordering and buy eligibility
	Action         TradeAction
	SellAmount     int64 // token-native units, only meaningful for sells
	Timestamp      time.Time
}

// NewBuyOpportunity creates a buy opportunity for a newly observed pool.
func NewBuyOpportunity(ev *PoolEvent, tokenMint, baseMint string, estimatedPrice, confidence, priorityScore float64) *Opportunity {
	return &Opportunity{
		ID:             uuid.New().String(),
		PoolAddress:    ev.PoolAddress,
		Dex:            ev.Dex,
		TokenMint:      tokenMint,
		BaseMint:       baseMint,
		EstimatedPrice: estimatedPrice,
		Confidence:     confidence,
		PriorityScore:  priorityScore,
		Action:         ActionBuy,
		Timestamp:      time.Now(),
	}
}

// NewSellOpportunity creates a sell opportunity for an open position.
func NewSellOpportunity(poolAddress, dex, tokenMint, baseMint string, price float64, amount int64) *Opportunity {
	return &Opportunity{
		ID:             uuid.New().String(),
		PoolAddress:    poolAddress,
		Dex:            dex,
		TokenMint:      tokenMint,
		BaseMint:       baseMint,
		EstimatedPrice: price,
		Confidence:     1.0,
		PriorityScore:  1.0,
		Action:         ActionSell,
		SellAmount:     amount,
		Timestamp:      time.Now(),
	}
}

// Key returns the deduplication key used by the pending-trade set.
// Two opportunities for the same pool and direction share a key so they
// cannot double-execute.
func (o *Opportunity) Key() string {
	return o.PoolAddress + ":" + string(o.Action)
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] %s %s pool=%s price=%.8f score=%.2f conf=%.2f",
		o.ID[:8],
		o.Action,
		o.TokenMint,
		o.PoolAddress,
		o.EstimatedPrice,
		o.PriorityScore,
		o.Confidence,
	)
}

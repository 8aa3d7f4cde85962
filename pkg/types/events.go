package types

import "time"

// EventKind identifies a lifecycle event emitted by the trading engine.
type EventKind string

const (
	EventOpportunityDetected EventKind = "opportunity_detected"
	EventTradeExecuted       EventKind = "trade_executed"
	EventPositionUpdated     EventKind = "position_updated"
	EventPriceUpdated        EventKind = "price_updated"
	EventErrorOccurred       EventKind = "error_occurred"
)

// Event is a strongly-typed lifecycle event for external subscribers
// (dashboards, notifiers). Exactly one payload field is set depending on
// Kind.
type Event struct {
	Kind      EventKind
	Timestamp time.Time

	Opportunity *Opportunity
	TradeResult *TradeResult
	Position    *PositionSnapshot
	Price       *PriceUpdate
	Err         error
}

// PositionSnapshot is an immutable copy of a position for event consumers.
// The live position is owned exclusively by the strategy manager.
type PositionSnapshot struct {
	TokenMint     string
	PoolAddress   string
	Dex           string
	BaseMint      string
	Amount        int64
	AvgBuyPrice   float64
	CurrentPrice  float64
	CostBasis     float64
	ProfitLoss    float64
	ProfitLossPct float64
	LastUpdated   time.Time
}

// PriceUpdate carries a refreshed price observation.
type PriceUpdate struct {
	TokenMint string
	Price     float64
}

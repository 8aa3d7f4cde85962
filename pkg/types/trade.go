package types

import "time"

// TradeResult is the outcome of a single executed trade attempt.
// It is produced once per attempt and never mutated afterwards.
type TradeResult struct {
	Success     bool
	Signature   string
	TokenAmount int64   // token-native units bought or sold
	BaseAmount  float64 // base token spent (buy) or received (sell)
	Price       float64
	PriceImpact float64
	Fee         float64
	Err         error
	Timestamp   time.Time
}

// TradeStatus is the durable status of a recorded trade.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusCompleted TradeStatus = "completed"
	TradeStatusFailed    TradeStatus = "failed"
)

// Trade is the durable record handed to the trade history store.
type Trade struct {
	ID           string
	Timestamp    time.Time
	Type         TradeAction
	TokenAddress string
	TokenSymbol  string
	Amount       int64
	Price        float64
	Value        float64
	TxID         string
	Status       TradeStatus
	Profit       float64
	Fee          float64
	Error        string
}

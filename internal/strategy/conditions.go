package strategy

import "time"

// ConditionType identifies a sell-trigger rule.
type ConditionType string

const (
	TakeProfit   ConditionType = "TAKE_PROFIT"
	StopLoss     ConditionType = "STOP_LOSS"
	TrailingStop ConditionType = "TRAILING_STOP"
	TimeLimit    ConditionType = "TIME_LIMIT"
)

// Condition is a single sell-trigger rule. Conditions form a static,
// ordered list evaluated on every price update; the first enabled condition
// that fires wins.
type Condition struct {
	Type       ConditionType
	Percentage float64       // TAKE_PROFIT / STOP_LOSS / TRAILING_STOP
	TimeLimit  time.Duration // TIME_LIMIT only
	Enabled    bool
}

// DefaultConditions is the safety net applied when no sell conditions are
// configured, so positions are never unconditionally held forever.
func DefaultConditions() []Condition {
	return []Condition{
		{Type: TakeProfit, Percentage: 20.0, Enabled: true},
		{Type: StopLoss, Percentage: 10.0, Enabled: true},
	}
}

package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradeOutcomesTotal tracks recorded trade outcomes.
	TradeOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soltrader_risk_trade_outcomes_total",
			Help: "Total number of trade outcomes recorded",
		},
		[]string{"result"},
	)

	// AdjustmentsTotal tracks risk budget adjustments by direction.
	AdjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soltrader_risk_adjustments_total",
			Help: "Total number of risk budget adjustments",
		},
		[]string{"direction"},
	)

	// RiskPerTokenLevel is the current default per-token risk fraction.
	RiskPerTokenLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_risk_per_token_level",
		Help: "Current default per-token risk fraction",
	})

	// TotalRiskLevel is the current aggregate risk fraction.
	TotalRiskLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_risk_total_level",
		Help: "Current aggregate risk fraction",
	})
)

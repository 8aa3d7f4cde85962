package strategy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PositionsOpen tracks the number of currently open positions.
	PositionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_positions_open",
		Help: "Number of currently open positions",
	})

	// SellTriggersTotal tracks fired sell conditions by type.
	SellTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soltrader_sell_triggers_total",
			Help: "Total number of sell triggers fired",
		},
		[]string{"trigger"},
	)

	// BuyRejectedTotal tracks buy-eligibility rejections by reason.
	BuyRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soltrader_buy_rejected_total",
			Help: "Total number of opportunities rejected by buy checks",
		},
		[]string{"reason"},
	)
)

package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TradesStoredTotal counts trade history writes by result.
var TradesStoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "soltrader_trades_stored_total",
	Help: "Total number of trade history writes",
}, []string{"result"})

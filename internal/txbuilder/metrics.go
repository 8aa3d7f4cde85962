package txbuilder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BuildsTotal counts swap builds by venue and result.
var BuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "soltrader_tx_builds_total",
	Help: "Total number of swap transaction builds",
}, []string{"venue", "result"})

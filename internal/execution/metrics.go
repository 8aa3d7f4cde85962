package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesTotal counts executed trades by side and result.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soltrader_trades_total",
		Help: "Total number of trade executions",
	}, []string{"side", "result"})

	// AttemptsTotal counts submission attempts by terminal status.
	AttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soltrader_submit_attempts_total",
		Help: "Total number of transaction submission attempts",
	}, []string{"status"})

	// BlockhashRefreshesTotal counts blockhash re-anchors on retry.
	BlockhashRefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soltrader_blockhash_refreshes_total",
		Help: "Total number of blockhash refreshes before retry",
	})
)

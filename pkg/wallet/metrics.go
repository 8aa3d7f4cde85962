package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	SigningOpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soltrader_wallet_signing_ops_total",
		Help: "Total number of transaction signing operations",
	})
)

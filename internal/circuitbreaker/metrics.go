package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerEnabled is 1 when trading is allowed, 0 when halted.
	BreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_circuit_breaker_enabled",
		Help: "Whether the balance circuit breaker allows trading (1) or not (0)",
	})

	// BreakerBalance is the last observed wallet balance.
	BreakerBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_circuit_breaker_balance",
		Help: "Last observed wallet base-token balance",
	})

	// BreakerDisableThreshold is the balance below which trading halts.
	BreakerDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_circuit_breaker_disable_threshold",
		Help: "Balance threshold below which trading is disabled",
	})

	// BreakerEnableThreshold is the balance above which trading resumes.
	BreakerEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_circuit_breaker_enable_threshold",
		Help: "Balance threshold above which trading is re-enabled",
	})

	// BreakerStateChanges counts enable/disable transitions.
	BreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soltrader_circuit_breaker_state_changes_total",
		Help: "Total number of circuit breaker state transitions",
	})
)

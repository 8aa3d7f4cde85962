package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts pool events by disposition.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soltrader_feed_events_total",
		Help: "Total number of pool events received from the feed",
	}, []string{"disposition"})

	// ConnectedGauge is 1 while the feed connection is up.
	ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_feed_connected",
		Help: "Whether the pool-event feed connection is up (1) or not (0)",
	})

	// ReconnectAttemptsTotal counts reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soltrader_feed_reconnect_attempts_total",
		Help: "Total number of feed reconnection attempts",
	})

	// ReconnectFailuresTotal counts failed reconnection attempts.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soltrader_feed_reconnect_failures_total",
		Help: "Total number of failed feed reconnection attempts",
	})
)

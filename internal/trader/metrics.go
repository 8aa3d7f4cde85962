package trader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesTotal counts pool events by pipeline outcome.
	OpportunitiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soltrader_opportunities_total",
		Help: "Total number of pool events by detection pipeline outcome",
	}, []string{"outcome"})

	// QueueDepth is the current opportunity queue length.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_opportunity_queue_depth",
		Help: "Current number of queued opportunities",
	})

	// QueueTrimsTotal counts pressure-relief trims.
	QueueTrimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soltrader_opportunity_queue_trims_total",
		Help: "Total number of queue pressure-relief trims",
	})

	// QueueEvictionsTotal counts opportunities dropped by trims.
	QueueEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soltrader_opportunity_queue_evictions_total",
		Help: "Total number of opportunities evicted under queue pressure",
	})

	// PendingTrades is the current in-flight execution count.
	PendingTrades = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_pending_trades",
		Help: "Current number of in-flight trade executions",
	})

	// BatchesTotal counts dispatched batches by trigger.
	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soltrader_batches_total",
		Help: "Total number of dispatched opportunity batches",
	}, []string{"trigger"})

	// DedupSkipsTotal counts picks skipped by the pending-trade guard.
	DedupSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soltrader_dedup_skips_total",
		Help: "Total number of executions skipped by the pending-trade guard",
	})

	// HealActionsTotal counts self-heal interventions by kind.
	HealActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soltrader_heal_actions_total",
		Help: "Total number of self-heal interventions",
	}, []string{"action"})

	// EventsPublishedTotal counts bus events by kind and disposition.
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soltrader_events_published_total",
		Help: "Total number of lifecycle events published on the bus",
	}, []string{"kind", "disposition"})
)

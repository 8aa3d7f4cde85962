package statestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SnapshotOpsTotal counts snapshot store operations by op and result.
var SnapshotOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "soltrader_position_snapshot_ops_total",
	Help: "Total number of position snapshot store operations",
}, []string{"op", "result"})

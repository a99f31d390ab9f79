// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "civitas"

var (
	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Commands dispatched, by keyword and outcome code.",
	}, []string{"command", "outcome"})

	LedgerMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_movements_total",
		Help:      "Ledger entries appended, by direction.",
	}, []string{"direction"})

	LedgerVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_volume_total",
		Help:      "Credit units moved, by direction.",
	}, []string{"direction"})

	PayoutDust = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payout_dust_total",
		Help:      "Credit units left undistributed by proportional payouts.",
	})

	VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "version_conflicts_total",
		Help:      "Transactions retried after losing an optimistic version check.",
	})

	Panics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "panics_recovered_total",
		Help:      "Panics recovered, by where they were caught.",
	}, []string{"source"})

	InboxReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inbox_reclaimed_total",
		Help:      "Messages returned to the queue after their claim timed out.",
	})

	InboxBatch = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inbox_batch_messages",
		Help:      "Messages handled per processor batch.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})
)

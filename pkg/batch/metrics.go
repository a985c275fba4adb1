package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workpulse_batch_items_total",
			Help: "Batch items by outcome (ok, error, panic, timeout).",
		},
		[]string{"outcome"},
	)

	batchDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "workpulse_batch_duration_seconds",
			Help:    "Wall time per batch run.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

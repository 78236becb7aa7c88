package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "datevrec",
			Name:      "documents_total",
			Help:      "Documents handled per run outcome",
		},
		[]string{"status"},
	)
	entriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "datevrec",
			Name:      "ledger_entries_total",
			Help:      "Ledger entries emitted to the sink",
		},
	)
	warningsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "datevrec",
			Name:      "warnings_total",
			Help:      "Warnings surfaced in run reports",
		},
	)
	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "datevrec",
			Name:      "run_duration_seconds",
			Help:      "Wall time of export runs",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

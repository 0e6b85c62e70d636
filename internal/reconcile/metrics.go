package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeMissing  = "missing"
	outcomeChanged  = "changed"
	outcomeUpserted = "upserted"
	outcomeFailed   = "failed"

	phaseScan   = "scan"
	phaseUpsert = "upsert"

	resultSuccess    = "success"
	resultFetchError = "fetch_error"
	resultWriteError = "write_error"
)

var (
	reconcileDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "termsearch_reconcile_documents_total",
			Help: "Documents seen by reconciliation passes, by outcome",
		},
		[]string{"outcome"},
	)

	reconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "termsearch_reconcile_duration_seconds",
			Help:    "Duration of reconciliation phases in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	reconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "termsearch_reconcile_runs_total",
			Help: "Completed reconciliation passes, by result",
		},
		[]string{"result"},
	)
)

package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_transactions_posted_total",
		Help: "Total number of journal transactions posted",
	})

	paymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payments_recorded_total",
		Help: "Total number of invoice payments recorded by method",
	}, []string{"method"})

	commissionsCalculated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commissions_calculated_total",
		Help: "Total number of commission calculations by resolution source",
	}, []string{"source"})

	operationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_rejected_total",
		Help: "Business-rule rejections by error code",
	}, []string{"code"})

	rankingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_ranking_recompute_duration_seconds",
		Help:    "Duration of agency ranking recomputation",
		Buckets: prometheus.DefBuckets,
	})
)

// observeRejection counts err if it is a business failure and returns it unchanged.
func observeRejection(err error) error {
	if e, ok := AsError(err); ok {
		operationsRejected.WithLabelValues(e.Code).Inc()
	}
	return err
}

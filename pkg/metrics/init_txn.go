package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTransactionMetrics() {
	r.TransactionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "controlroom_transactions_total",
			Help: "Total number of transactions by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	r.TransactionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "controlroom_transaction_duration_seconds",
			Help:    "Transaction duration in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
		[]string{"kind"},
	)

	r.HistoryDepth = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "controlroom_history_depth",
			Help: "Number of entries on the undo and redo stacks",
		},
		[]string{"stack"},
	)
}

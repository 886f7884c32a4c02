package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	batchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paymatrix",
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Total number of batch runs by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	batchUnits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paymatrix",
			Subsystem: "batch",
			Name:      "units_total",
			Help:      "Total number of batch units by kind and status.",
		},
		[]string{"kind", "status"},
	)

	batchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paymatrix",
			Subsystem: "batch",
			Name:      "run_duration_seconds",
			Help:      "Duration of batch runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"kind"},
	)

	ledgerPostings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paymatrix",
			Subsystem: "ledger",
			Name:      "postings_total",
			Help:      "Total number of committed wallet postings by transaction type.",
		},
		[]string{"type"},
	)

	ledgerAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paymatrix",
			Subsystem: "ledger",
			Name:      "posted_amount_total",
			Help:      "Absolute amount of committed wallet postings by transaction type.",
		},
		[]string{"type"},
	)
)

func init() {
	Registry.MustRegister(
		batchRuns,
		batchUnits,
		batchDuration,
		ledgerPostings,
		ledgerAmount,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordRun records the outcome and duration of a batch run.
func RecordRun(kind, outcome string, duration time.Duration) {
	batchRuns.WithLabelValues(kind, outcome).Inc()
	batchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordUnit counts one processed batch unit.
func RecordUnit(kind, status string) {
	batchUnits.WithLabelValues(kind, status).Inc()
}

// RecordPosting counts one committed wallet posting.
func RecordPosting(txType string, amount decimal.Decimal) {
	ledgerPostings.WithLabelValues(txType).Inc()
	f, _ := amount.Abs().Float64()
	ledgerAmount.WithLabelValues(txType).Add(f)
}

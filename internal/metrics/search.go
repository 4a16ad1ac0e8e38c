package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search engine Prometheus metrics.
var (
	SearchOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zelastic",
			Name:      "search_ops_total",
			Help:      "Total number of search engine operations",
		},
		[]string{"op", "status"},
	)

	SearchOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zelastic",
			Name:      "search_op_duration_seconds",
			Help:      "Search engine operation duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op"},
	)

	SearchBulkQueue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "zelastic",
			Name:      "search_bulk_queue",
			Help:      "Search document mutations waiting for the next bulk flush",
		},
	)
)

var searchMetricsOnce sync.Once

// RegisterSearchMetrics registers the search engine metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	searchMetricsOnce.Do(func() {
		prometheus.MustRegister(SearchOpsTotal)
		prometheus.MustRegister(SearchOpDuration)
		prometheus.MustRegister(SearchBulkQueue)
	})
}

// ObserveSearchOp records the outcome and latency of one engine call.
func ObserveSearchOp(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SearchOpsTotal.WithLabelValues(op, status).Inc()
	SearchOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

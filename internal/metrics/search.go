package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search orchestration Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trialsearch",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"search_type", "status"},
	)

	SearchRelaxationSteps = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trialsearch",
			Name:      "search_relaxation_steps",
			Help:      "Relaxation steps taken before the result set was sufficient",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
		},
		[]string{"search_type"},
	)

	SearchBackendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trialsearch",
			Name:      "search_backend_duration_seconds",
			Help:      "Search backend round-trip duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRelaxationSteps)
	prometheus.MustRegister(SearchBackendDuration)
	searchMetricsRegistered = true
}

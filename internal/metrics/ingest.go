package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion pipeline Prometheus metrics.
var (
	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trialsearch",
			Name:      "ingest_records_total",
			Help:      "Records processed by the ingestion pipeline",
		},
		[]string{"result"}, // "valid" / "skipped" / "failed"
	)

	IngestBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trialsearch",
			Name:      "ingest_batch_duration_seconds",
			Help:      "Bulk index batch duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers Prometheus ingestion metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestRecordsTotal)
	prometheus.MustRegister(IngestBatchDuration)
	ingestMetricsRegistered = true
}

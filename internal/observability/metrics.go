package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	httpErrorsTotal      *prometheus.CounterVec
	gradingRequestsTotal *prometheus.CounterVec
	gradingStageSeconds  *prometheus.HistogramVec
	auditFallbacksTotal  *prometheus.CounterVec
	ingestRejectedTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		gradingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_requests_total",
			Help: "Grading pipeline runs by outcome.",
		}, []string{"outcome"})

		gradingStageSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_stage_duration_seconds",
			Help:    "Duration of each grading pipeline stage.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 90},
		}, []string{"stage"})

		auditFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_audit_fallbacks_total",
			Help: "Audits replaced by the fallback verdict, by reason.",
		}, []string{"reason"})

		ingestRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_ingest_rejected_total",
			Help: "Artifacts rejected during ingestion, by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			gradingRequestsTotal,
			gradingStageSeconds,
			auditFallbacksTotal,
			ingestRejectedTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// GradingRequests exposes the pipeline outcome counter.
func GradingRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingRequestsTotal
}

// GradingStageLatency exposes the per-stage latency histogram.
func GradingStageLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return gradingStageSeconds
}

// AuditFallbacks exposes the counter of audits replaced by the fallback verdict.
func AuditFallbacks() *prometheus.CounterVec {
	RegisterMetrics()
	return auditFallbacksTotal
}

// IngestRejected exposes the counter of rejected artifacts.
func IngestRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return ingestRejectedTotal
}

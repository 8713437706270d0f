// Package metrics provides Prometheus metrics for the reference-resolution
// proxy, observing the same outcomes spec §8 makes testable so operators
// can see them, not just assert them in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExportRequestsTotal tracks /export requests by codec and outcome.
	ExportRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refproxy",
			Subsystem: "export",
			Name:      "requests_total",
			Help:      "Total number of export requests by format and outcome",
		},
		[]string{"format", "status"},
	)

	// ImportRequestsTotal tracks /import requests by codec and outcome.
	ImportRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refproxy",
			Subsystem: "import",
			Name:      "requests_total",
			Help:      "Total number of import requests by format and outcome",
		},
		[]string{"format", "status"},
	)

	// ImportRecordsTotal tracks per-record import outcomes.
	ImportRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refproxy",
			Subsystem: "import",
			Name:      "records_total",
			Help:      "Total number of imported records by outcome",
		},
		[]string{"outcome"},
	)

	// ResolutionOutcomesTotal tracks C10 per-field resolution outcomes
	// (resolved/missing/ambiguous/no_metadata), matching spec §8 invariant 5.
	ResolutionOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refproxy",
			Subsystem: "resolver",
			Name:      "outcomes_total",
			Help:      "Total number of FK resolution outcomes by kind",
		},
		[]string{"outcome"},
	)

	// CycleDetectionsTotal counts import requests where C5 found a cycle.
	CycleDetectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "refproxy",
			Subsystem: "resolver",
			Name:      "cycle_detections_total",
			Help:      "Total number of import requests in which a parent-pointer cycle was detected",
		},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests to source/target endpoints.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refproxy",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "refproxy",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// RateLimitWaitTime tracks time spent waiting on the outbound rate
	// limiter (pkg/ratelimit) before a source/target call is allowed through.
	RateLimitWaitTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "refproxy",
			Subsystem: "ratelimit",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for the outbound rate limiter in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"limit_name"},
	)

	// AuditEventsPublished tracks audit events published to Kafka.
	AuditEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refproxy",
			Subsystem: "audit",
			Name:      "events_published_total",
			Help:      "Total number of audit events published",
		},
		[]string{"event_type", "status"},
	)
)

// RecordResolution records one field resolution outcome.
func RecordResolution(outcome string) {
	ResolutionOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an outbound HTTP request metric.
func RecordHTTPRequest(method, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

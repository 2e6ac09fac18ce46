// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics provides Prometheus instrumentation for CineMatch:
// API endpoint latency and throughput, SQLite query performance,
// recommendation engine behavior, and the TMDb circuit breaker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlite_query_duration_seconds",
			Help:    "Duration of SQLite queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlite_query_errors_total",
			Help: "Total number of SQLite query errors",
		},
		[]string{"operation", "table"},
	)

	// Recommendation engine metrics
	RecommendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests by method",
		},
		[]string{"method"},
	)

	RecommendCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	RecommendCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
	)

	RecommendTrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_training_duration_seconds",
			Help:    "Duration of full model training runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	RecommendModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_model_version",
			Help: "Current trained model version (increments on each train)",
		},
	)

	// Feedback metrics
	FeedbackRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_recorded_total",
			Help: "Total number of feedback entries recorded",
		},
		[]string{"method"},
	)

	// TMDb enrichment metrics
	TMDbRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_requests_total",
			Help: "Total number of TMDb API requests by outcome",
		},
		[]string{"outcome"}, // success, no_results, failure, rejected
	)

	// CircuitBreakerState tracks breaker state: 0=closed, 1=half-open, 2=open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordAPIRequest records metrics for a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records the duration of a database query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package middleware provides HTTP middleware shared by all API routes:
// request ID propagation and Prometheus instrumentation.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cinematch/cinematch/internal/metrics"
)

// PrometheusMetrics records request counts, latency, and active request
// gauges for every route. The route pattern (not the raw path) is used as
// the endpoint label so path parameters do not explode cardinality.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		wrapper := &metricsResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapper, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}

		metrics.RecordAPIRequest(
			r.Method,
			endpoint,
			strconv.Itoa(wrapper.statusCode),
			time.Since(start),
		)
	})
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

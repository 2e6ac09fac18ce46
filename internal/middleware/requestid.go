// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package middleware

import (
	"net/http"

	"github.com/cinematch/cinematch/internal/logging"
)

// RequestIDHeader is the header carrying the request ID in and out.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to the context and response. An inbound
// X-Request-ID is honored so IDs propagate across services; otherwise a
// new one is generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = logging.GenerateRequestID()
		}

		ctx := logging.ContextWithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

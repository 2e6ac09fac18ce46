// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "net/http"

// handleHealth serves GET /api/v1/health with a component breakdown.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := s.db.Ping(r.Context()); err != nil {
		rw.ServiceUnavailable("database unavailable")
		return
	}

	model := "ok"
	if !s.engine.Status().Trained {
		model = "not trained"
	}
	rw.Success(map[string]interface{}{
		"status": "ok",
		"components": map[string]string{
			"database": "ok",
			"model":    model,
		},
	})
}

// handleLive serves GET /api/v1/health/live: process liveness only.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// handleReady serves GET /api/v1/health/ready: the service is ready once
// the database answers and the model has trained at least once.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := s.db.Ping(r.Context()); err != nil {
		rw.ServiceUnavailable("database unavailable")
		return
	}
	if !s.engine.Status().Trained {
		rw.ServiceUnavailable("model not trained yet")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

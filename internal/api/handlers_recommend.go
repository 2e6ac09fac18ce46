// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/cinematch/cinematch/internal/logging"
	"github.com/cinematch/cinematch/internal/recommend"
)

// handleContentRecommend serves GET /api/v1/recommendations/content/{movieID}
// and its alias GET /api/v1/movies/{movieID}/similar.
func (s *Server) handleContentRecommend(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	movieID, err := pathID(r, "movieID")
	if err != nil {
		rw.BadRequest("movieID must be an integer")
		return
	}
	k := parseIntParam(r, "k", 0, 100)

	recs, err := s.engine.SimilarMovies(r.Context(), movieID, k)
	if err != nil {
		s.writeRecommendError(rw, r, err, "content recommendation failed")
		return
	}
	rw.SuccessWithPagination(recs, &PaginationMeta{Count: len(recs)})
}

// handleContentRecommendByTitle serves
// GET /api/v1/recommendations/content?title=... for callers that only know
// the MovieLens title. Matching is exact; duplicate titles resolve to the
// first imported movie.
func (s *Server) handleContentRecommendByTitle(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	title := r.URL.Query().Get("title")
	if title == "" {
		rw.BadRequest("title query parameter is required")
		return
	}
	k := parseIntParam(r, "k", 0, 100)

	recs, err := s.engine.SimilarMoviesByTitle(r.Context(), title, k)
	if err != nil {
		s.writeRecommendError(rw, r, err, "content recommendation failed")
		return
	}
	rw.SuccessWithPagination(recs, &PaginationMeta{Count: len(recs)})
}

// handleCollaborativeRecommend serves
// GET /api/v1/recommendations/collaborative/{userID}.
func (s *Server) handleCollaborativeRecommend(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := pathID(r, "userID")
	if err != nil {
		rw.BadRequest("userID must be an integer")
		return
	}
	k := parseIntParam(r, "k", 0, 100)

	recs, err := s.engine.RecommendForUser(r.Context(), userID, k)
	if err != nil {
		s.writeRecommendError(rw, r, err, "collaborative recommendation failed")
		return
	}
	rw.SuccessWithPagination(recs, &PaginationMeta{Count: len(recs)})
}

// handleSimilarUsers serves GET /api/v1/recommendations/similar-users/{userID}.
func (s *Server) handleSimilarUsers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := pathID(r, "userID")
	if err != nil {
		rw.BadRequest("userID must be an integer")
		return
	}
	k := parseIntParam(r, "k", 0, 100)

	sims, err := s.engine.SimilarUsers(r.Context(), userID, k)
	if err != nil {
		s.writeRecommendError(rw, r, err, "similar user lookup failed")
		return
	}
	rw.SuccessWithPagination(sims, &PaginationMeta{Count: len(sims)})
}

// handleTrainingStatus serves GET /api/v1/recommendations/status.
func (s *Server) handleTrainingStatus(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(s.engine.Status())
}

// handleTrain serves POST /api/v1/recommendations/train. Training runs in
// the background; the response confirms the run started.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := s.engine.Status()
	if status.InProgress {
		rw.Conflict("a training run is already in progress")
		return
	}

	// Detach from the request context so training survives the response
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := s.engine.Train(ctx); err != nil && !errors.Is(err, recommend.ErrTrainingInProgress) {
			logging.Error().Err(err).Msg("background training failed")
		}
	}()

	rw.Success(map[string]string{"status": "training started"})
}

// writeRecommendError maps engine errors onto HTTP status codes.
func (s *Server) writeRecommendError(rw *ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, recommend.ErrNotTrained):
		rw.ServiceUnavailable("model not trained yet")
	case errors.Is(err, recommend.ErrMovieNotFound):
		rw.NotFound("movie not in trained model")
	case errors.Is(err, recommend.ErrUserNotFound):
		rw.NotFound("user not in trained model")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg(logMsg)
		rw.InternalError(logMsg)
	}
}

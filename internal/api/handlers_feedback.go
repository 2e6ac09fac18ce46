// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/cinematch/cinematch/internal/database"
	"github.com/cinematch/cinematch/internal/logging"
	"github.com/cinematch/cinematch/internal/metrics"
	"github.com/cinematch/cinematch/internal/models"
)

// feedbackRequest is the POST /api/v1/feedback body.
type feedbackRequest struct {
	UserID  int64  `json:"user_id" validate:"required,gt=0"`
	MovieID int64  `json:"movie_id" validate:"required,gt=0"`
	Method  string `json:"method" validate:"required,oneof=content collaborative popular"`
	Action  string `json:"action" validate:"required,oneof=click like dislike watched"`
	Comment string `json:"comment" validate:"max=1000"`
}

// handlePostFeedback records a recommendation interaction in the feedback
// log. The referenced movie must exist.
func (s *Server) handlePostFeedback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			rw.ValidationFailed("feedback validation failed", details)
			return
		}
		rw.BadRequest("feedback validation failed")
		return
	}

	if _, err := s.db.GetMovie(r.Context(), req.MovieID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("movie not found")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("feedback movie lookup failed")
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "movie lookup failed")
		return
	}

	stored, err := s.store.AppendFeedback(models.Feedback{
		UserID:  req.UserID,
		MovieID: req.MovieID,
		Method:  req.Method,
		Action:  req.Action,
		Comment: req.Comment,
	})
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("feedback write failed")
		rw.InternalError("failed to record feedback")
		return
	}

	metrics.FeedbackRecordedTotal.WithLabelValues(req.Method).Inc()
	rw.Created(stored)
}

// handleListFeedback serves GET /api/v1/feedback, newest first, with an
// optional user_id filter.
func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit := parseIntParam(r, "limit", defaultPageSize, maxPageSize)

	var userID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			rw.BadRequest("user_id must be a positive integer")
			return
		}
		userID = parsed
	}

	entries, err := s.store.ListFeedback(limit, userID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("feedback listing failed")
		rw.InternalError("failed to list feedback")
		return
	}
	rw.SuccessWithPagination(entries, &PaginationMeta{Count: len(entries), Limit: limit})
}

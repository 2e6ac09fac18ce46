// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cinematch/cinematch/internal/database"
	"github.com/cinematch/cinematch/internal/logging"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// parseIntParam reads an integer query parameter with bounds applied.
func parseIntParam(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// pathID parses a numeric URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// handleListMovies serves GET /api/v1/movies with limit/offset paging,
// an optional q parameter for title search, and an optional genre filter.
func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit := parseIntParam(r, "limit", defaultPageSize, maxPageSize)
	offset := parseIntParam(r, "offset", 0, 0)

	if q := r.URL.Query().Get("q"); q != "" {
		movies, err := s.db.SearchMovies(r.Context(), q, limit)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("movie search failed")
			rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "movie search failed")
			return
		}
		rw.SuccessWithPagination(movies, &PaginationMeta{
			Count: len(movies),
			Limit: limit,
		})
		return
	}

	if genre := r.URL.Query().Get("genre"); genre != "" {
		movies, err := s.db.MoviesByGenre(r.Context(), genre, limit)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("genre filter failed")
			rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "genre filter failed")
			return
		}
		rw.SuccessWithPagination(movies, &PaginationMeta{
			Count: len(movies),
			Limit: limit,
		})
		return
	}

	movies, err := s.db.ListMovies(r.Context(), limit, offset)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("movie listing failed")
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "movie listing failed")
		return
	}
	total, err := s.db.CountMovies(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("movie count failed")
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "movie count failed")
		return
	}

	rw.SuccessWithPagination(movies, &PaginationMeta{
		Total:   total,
		Count:   len(movies),
		Offset:  offset,
		Limit:   limit,
		HasMore: int64(offset+len(movies)) < total,
	})
}

// handleGetMovie serves GET /api/v1/movies/{movieID}.
func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	movieID, err := pathID(r, "movieID")
	if err != nil {
		rw.BadRequest("movieID must be an integer")
		return
	}

	movie, err := s.db.GetMovie(r.Context(), movieID)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("movie not found")
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("movie_id", movieID).Msg("movie lookup failed")
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "movie lookup failed")
		return
	}
	rw.Success(movie)
}

// handleListUsers serves GET /api/v1/users: the distinct user IDs present
// in the ratings data.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	users, err := s.db.ListUsers(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("user listing failed")
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "user listing failed")
		return
	}
	rw.SuccessWithPagination(users, &PaginationMeta{Count: len(users)})
}

// handleUserRatings serves GET /api/v1/users/{userID}/ratings: one user's
// rating history ordered by movie ID.
func (s *Server) handleUserRatings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := pathID(r, "userID")
	if err != nil {
		rw.BadRequest("userID must be an integer")
		return
	}

	ratings, err := s.db.RatingsByUser(r.Context(), userID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("user_id", userID).Msg("rating lookup failed")
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "rating lookup failed")
		return
	}
	if len(ratings) == 0 {
		rw.NotFound("user has no ratings")
		return
	}
	rw.SuccessWithPagination(ratings, &PaginationMeta{Count: len(ratings)})
}

// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/database"
	"github.com/cinematch/cinematch/internal/docstore"
	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/recommend"
)

func testServer(t *testing.T, train bool) *Server {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "api.db"),
		BusyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := docstore.Open(config.DocStoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	if err := db.UpsertMovies(ctx, []models.Movie{
		{MovieID: 1, Title: "Star Quest", Genres: "Sci-Fi"},
		{MovieID: 2, Title: "Galaxy Run", Genres: "Sci-Fi"},
		{MovieID: 3, Title: "Paris Hearts", Genres: "Romance"},
	}); err != nil {
		t.Fatalf("seed movies: %v", err)
	}
	for id, e := range map[int64]models.EnrichedMovie{
		1: {MovieID: 1, TMDbID: 11, Overview: "space adventure with droids across space", VoteAverage: 7.5},
		2: {MovieID: 2, TMDbID: 12, Overview: "space adventure across distant galaxies", VoteAverage: 8.2},
		3: {MovieID: 3, TMDbID: 13, Overview: "romantic drama set in paris", VoteAverage: 6.9},
	} {
		if err := db.ApplyEnrichment(ctx, e); err != nil {
			t.Fatalf("enrich movie %d: %v", id, err)
		}
	}
	if err := db.InsertRatings(ctx, []models.Rating{
		{UserID: 1, MovieID: 1, Rating: 5},
		{UserID: 1, MovieID: 2, Rating: 4},
		{UserID: 2, MovieID: 1, Rating: 5},
		{UserID: 2, MovieID: 3, Rating: 3},
	}); err != nil {
		t.Fatalf("seed ratings: %v", err)
	}

	engine := recommend.NewEngine(recommend.Config{}, db, zerolog.Nop())
	if train {
		if err := engine.Train(ctx); err != nil {
			t.Fatalf("train engine: %v", err)
		}
	}

	return NewServer(config.ServerConfig{
		CORSOrigins: []string{"*"},
		RateLimit:   1000,
	}, db, store, engine)
}

func doRequest(t *testing.T, srv *Server, method, path string, body []byte) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var resp APIResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, resp
}

func TestListMovies(t *testing.T) {
	srv := testServer(t, true)

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/movies?limit=2", nil)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if resp.Meta == nil || resp.Meta.Pagination == nil {
		t.Fatalf("missing pagination meta: %s", rec.Body.String())
	}
	p := resp.Meta.Pagination
	if p.Count != 2 || p.Total != 3 || !p.HasMore {
		t.Errorf("pagination = %+v, want count=2 total=3 has_more", p)
	}

	rec, resp = doRequest(t, srv, http.MethodGet, "/api/v1/movies?genre=sci-fi", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("genre filter status = %d", rec.Code)
	}
	if resp.Meta.Pagination.Count != 2 {
		t.Errorf("genre filter count = %d, want 2", resp.Meta.Pagination.Count)
	}
}

func TestGetMovie(t *testing.T) {
	srv := testServer(t, true)

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/movies/2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	data, _ := json.Marshal(resp.Data)
	var m models.Movie
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode movie: %v", err)
	}
	if m.MovieID != 2 || m.Title != "Galaxy Run" {
		t.Errorf("movie = %+v", m)
	}

	rec, resp = doRequest(t, srv, http.MethodGet, "/api/v1/movies/99", nil)
	if rec.Code != http.StatusNotFound || resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("missing movie: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec, _ = doRequest(t, srv, http.MethodGet, "/api/v1/movies/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id: status = %d, want 400", rec.Code)
	}
}

func TestContentRecommendations(t *testing.T) {
	srv := testServer(t, true)

	for _, path := range []string{
		"/api/v1/recommendations/content/1?k=2",
		"/api/v1/movies/1/similar?k=2",
	} {
		rec, resp := doRequest(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
		data, _ := json.Marshal(resp.Data)
		var recs []models.Recommendation
		if err := json.Unmarshal(data, &recs); err != nil {
			t.Fatalf("decode recommendations: %v", err)
		}
		if len(recs) != 2 || recs[0].MovieID != 2 {
			t.Errorf("%s: recs = %+v, want Galaxy Run first", path, recs)
		}
	}
}

func TestContentRecommendationsByTitle(t *testing.T) {
	srv := testServer(t, true)

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/recommendations/content?title=Star+Quest&k=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	data, _ := json.Marshal(resp.Data)
	var recs []models.Recommendation
	if err := json.Unmarshal(data, &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].MovieID != 2 {
		t.Errorf("recs = %+v, want Galaxy Run", recs)
	}

	rec, _ = doRequest(t, srv, http.MethodGet, "/api/v1/recommendations/content?title=Unknown+Film", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown title status = %d, want 404", rec.Code)
	}

	rec, _ = doRequest(t, srv, http.MethodGet, "/api/v1/recommendations/content", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing title status = %d, want 400", rec.Code)
	}
}

func TestRecommendationsNotTrained(t *testing.T) {
	srv := testServer(t, false)

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/recommendations/content/1", nil)
	if rec.Code != http.StatusServiceUnavailable || resp.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("status = %d, body = %s, want 503", rec.Code, rec.Body.String())
	}
}

func TestCollaborativeAndColdStart(t *testing.T) {
	srv := testServer(t, true)

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/recommendations/collaborative/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	data, _ := json.Marshal(resp.Data)
	var recs []models.Recommendation
	if err := json.Unmarshal(data, &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].MovieID != 3 || recs[0].Method != "collaborative" {
		t.Errorf("recs = %+v, want movie 3 via collaborative", recs)
	}

	// Unknown user falls back to popular movies instead of a 404
	rec, resp = doRequest(t, srv, http.MethodGet, "/api/v1/recommendations/collaborative/999?k=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cold start status = %d, body = %s", rec.Code, rec.Body.String())
	}
	data, _ = json.Marshal(resp.Data)
	recs = nil
	if err := json.Unmarshal(data, &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 2 || recs[0].Method != "popular" || recs[0].MovieID != 2 {
		t.Errorf("cold start recs = %+v, want popular with Galaxy Run first", recs)
	}
}

func TestSimilarUsersEndpoint(t *testing.T) {
	srv := testServer(t, true)

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/recommendations/similar-users/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	data, _ := json.Marshal(resp.Data)
	var sims []models.SimilarUser
	if err := json.Unmarshal(data, &sims); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sims) != 1 || sims[0].UserID != 2 {
		t.Errorf("sims = %+v, want user 2", sims)
	}

	rec, _ = doRequest(t, srv, http.MethodGet, "/api/v1/recommendations/similar-users/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rec.Code)
	}
}

func TestTrainingStatusEndpoint(t *testing.T) {
	srv := testServer(t, true)

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/recommendations/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data, _ := json.Marshal(resp.Data)
	var st recommend.TrainingStatus
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.Trained || st.ModelVersion != 1 || st.MovieCount != 3 {
		t.Errorf("status = %+v", st)
	}
}

func TestFeedbackRoundTrip(t *testing.T) {
	srv := testServer(t, true)

	body, _ := json.Marshal(map[string]interface{}{
		"user_id": 1, "movie_id": 2, "method": "content", "action": "like",
	})
	rec, resp := doRequest(t, srv, http.MethodPost, "/api/v1/feedback", body)
	if rec.Code != http.StatusCreated || !resp.Success {
		t.Fatalf("post status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec, resp = doRequest(t, srv, http.MethodGet, "/api/v1/feedback?user_id=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	data, _ := json.Marshal(resp.Data)
	var entries []models.Feedback
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].MovieID != 2 || entries[0].Action != "like" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestFeedbackValidation(t *testing.T) {
	srv := testServer(t, true)

	// Bad action value
	body, _ := json.Marshal(map[string]interface{}{
		"user_id": 1, "movie_id": 2, "method": "content", "action": "explode",
	})
	rec, resp := doRequest(t, srv, http.MethodPost, "/api/v1/feedback", body)
	if rec.Code != http.StatusBadRequest || resp.Error.Code != ErrCodeValidationFailed {
		t.Errorf("bad action: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Unknown movie
	body, _ = json.Marshal(map[string]interface{}{
		"user_id": 1, "movie_id": 999, "method": "content", "action": "like",
	})
	rec, _ = doRequest(t, srv, http.MethodPost, "/api/v1/feedback", body)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown movie: status = %d, want 404", rec.Code)
	}

	// Malformed JSON
	rec, _ = doRequest(t, srv, http.MethodPost, "/api/v1/feedback", []byte("{nope"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	trained := testServer(t, true)
	untrained := testServer(t, false)

	rec, _ := doRequest(t, trained, http.MethodGet, "/api/v1/health/live", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("live status = %d", rec.Code)
	}

	rec, _ = doRequest(t, trained, http.MethodGet, "/api/v1/health/ready", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("ready (trained) status = %d", rec.Code)
	}

	rec, _ = doRequest(t, untrained, http.MethodGet, "/api/v1/health/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready (untrained) status = %d, want 503", rec.Code)
	}

	rec, _ = doRequest(t, untrained, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200 (untrained model is not fatal)", rec.Code)
	}
}

func TestUsersEndpoint(t *testing.T) {
	srv := testServer(t, true)

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/users", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data, _ := json.Marshal(resp.Data)
	var users []int64
	if err := json.Unmarshal(data, &users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(users) != 2 || users[0] != 1 || users[1] != 2 {
		t.Errorf("users = %v, want [1 2]", users)
	}

	rec, resp = doRequest(t, srv, http.MethodGet, "/api/v1/users/2/ratings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ratings status = %d", rec.Code)
	}
	data, _ = json.Marshal(resp.Data)
	var ratings []models.Rating
	if err := json.Unmarshal(data, &ratings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ratings) != 2 || ratings[0].MovieID != 1 || ratings[1].MovieID != 3 {
		t.Errorf("ratings = %+v, want movies 1 and 3 for user 2", ratings)
	}

	rec, _ = doRequest(t, srv, http.MethodGet, "/api/v1/users/999/ratings", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user ratings status = %d, want 404", rec.Code)
	}
}

func TestRequestIDHeaderOnResponses(t *testing.T) {
	srv := testServer(t, true)
	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/movies/1", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Errorf("missing X-Request-ID response header")
	}
	if resp.Meta == nil || resp.Meta.RequestID == "" {
		t.Errorf("missing request ID in response meta: %s", rec.Body.String())
	}
}

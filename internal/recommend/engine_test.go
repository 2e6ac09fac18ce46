// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cinematch/cinematch/internal/models"
)

// stubProvider serves fixed movies and ratings to the engine.
type stubProvider struct {
	movies  []models.Movie
	ratings []models.Rating
}

func (p *stubProvider) AllMovies(ctx context.Context) ([]models.Movie, error) {
	return p.movies, nil
}

func (p *stubProvider) ValidRatings(ctx context.Context) ([]models.Rating, error) {
	return p.ratings, nil
}

func (p *stubProvider) TopRatedMovies(ctx context.Context, limit int) ([]models.Movie, error) {
	sorted := make([]models.Movie, len(p.movies))
	copy(sorted, p.movies)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].VoteAverage != sorted[j].VoteAverage {
			return sorted[i].VoteAverage > sorted[j].VoteAverage
		}
		return sorted[i].MovieID < sorted[j].MovieID
	})
	if limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	provider := &stubProvider{
		movies: []models.Movie{
			{MovieID: 1, Title: "Star Quest", Genres: "Sci-Fi", Overview: "space adventure with droids across space", VoteAverage: 7.5},
			{MovieID: 2, Title: "Galaxy Run", Genres: "Sci-Fi", Overview: "space adventure across distant galaxies", VoteAverage: 8.2},
			{MovieID: 3, Title: "Paris Hearts", Genres: "Romance", Overview: "romantic drama set in paris", VoteAverage: 6.9},
			{MovieID: 4, Title: "Silent Hill Road", Genres: "Horror", VoteAverage: 7.8},
		},
		ratings: []models.Rating{
			{UserID: 1, MovieID: 1, Rating: 5},
			{UserID: 1, MovieID: 2, Rating: 4},
			{UserID: 2, MovieID: 1, Rating: 5},
			{UserID: 2, MovieID: 2, Rating: 4},
			{UserID: 2, MovieID: 4, Rating: 3},
		},
	}
	e := NewEngine(Config{}, provider, zerolog.Nop())
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	return e
}

func TestEngineTrainStatus(t *testing.T) {
	e := testEngine(t)

	status := e.Status()
	if !status.Trained || status.InProgress {
		t.Errorf("status = %+v, want trained and idle", status)
	}
	if status.ModelVersion != 1 {
		t.Errorf("ModelVersion = %d, want 1", status.ModelVersion)
	}
	if status.MovieCount != 4 || status.UserCount != 2 || status.RatingCount != 5 {
		t.Errorf("counts = %d movies %d users %d ratings, want 4/2/5",
			status.MovieCount, status.UserCount, status.RatingCount)
	}
	if status.LastTrainedAt.IsZero() {
		t.Errorf("LastTrainedAt not set")
	}

	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("second Train() error: %v", err)
	}
	if got := e.Status().ModelVersion; got != 2 {
		t.Errorf("ModelVersion after retrain = %d, want 2", got)
	}
}

func TestEngineSimilarMovies(t *testing.T) {
	e := testEngine(t)

	recs, err := e.SimilarMovies(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("SimilarMovies() error: %v", err)
	}
	if len(recs) != 2 || recs[0].MovieID != 2 {
		t.Errorf("SimilarMovies(1) = %v, want Galaxy Run first", recs)
	}
	if recs[0].Title != "Galaxy Run" || recs[0].Genres != "Sci-Fi" {
		t.Errorf("metadata not populated: %+v", recs[0])
	}

	// Second call is served from cache and must match
	again, err := e.SimilarMovies(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("cached SimilarMovies() error: %v", err)
	}
	if len(again) != len(recs) || again[0].MovieID != recs[0].MovieID {
		t.Errorf("cached response differs: %v vs %v", again, recs)
	}
}

func TestEngineSimilarMoviesByTitle(t *testing.T) {
	e := testEngine(t)

	recs, err := e.SimilarMoviesByTitle(context.Background(), "Star Quest", 1)
	if err != nil {
		t.Fatalf("SimilarMoviesByTitle() error: %v", err)
	}
	if len(recs) != 1 || recs[0].MovieID != 2 {
		t.Errorf("SimilarMoviesByTitle() = %v, want Galaxy Run", recs)
	}

	if _, err := e.SimilarMoviesByTitle(context.Background(), "Nope", 1); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("SimilarMoviesByTitle(unknown) error = %v, want ErrMovieNotFound", err)
	}
}

func TestEngineSimilarMoviesUnknown(t *testing.T) {
	e := testEngine(t)
	if _, err := e.SimilarMovies(context.Background(), 99, 5); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("SimilarMovies(unknown) error = %v, want ErrMovieNotFound", err)
	}
	// Movie 4 has no overview but still resolves; every score is 0
	recs, err := e.SimilarMovies(context.Background(), 4, 5)
	if err != nil {
		t.Fatalf("SimilarMovies(no overview) error: %v", err)
	}
	for _, r := range recs {
		if r.Score != 0 {
			t.Errorf("movie %d score = %g, want 0", r.MovieID, r.Score)
		}
	}
}

func TestEngineRecommendKnownUser(t *testing.T) {
	e := testEngine(t)

	recs, err := e.RecommendForUser(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("RecommendForUser() error: %v", err)
	}
	if len(recs) != 1 || recs[0].MovieID != 4 {
		t.Fatalf("RecommendForUser(1) = %v, want movie 4 from neighbor", recs)
	}
	if recs[0].Method != "collaborative" {
		t.Errorf("Method = %q, want collaborative", recs[0].Method)
	}
	if recs[0].Title != "Silent Hill Road" {
		t.Errorf("metadata not attached: %+v", recs[0])
	}
}

func TestEngineColdStartFallback(t *testing.T) {
	e := testEngine(t)

	recs, err := e.RecommendForUser(context.Background(), 999, 2)
	if err != nil {
		t.Fatalf("RecommendForUser(cold start) error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("fallback returned %d movies, want 2", len(recs))
	}
	if recs[0].MovieID != 2 || recs[1].MovieID != 4 {
		t.Errorf("fallback order = [%d %d], want top-voted [2 4]", recs[0].MovieID, recs[1].MovieID)
	}
	for _, r := range recs {
		if r.Method != "popular" {
			t.Errorf("fallback Method = %q, want popular", r.Method)
		}
	}
}

func TestEngineSimilarUsers(t *testing.T) {
	e := testEngine(t)

	sims, err := e.SimilarUsers(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("SimilarUsers() error: %v", err)
	}
	if len(sims) != 1 || sims[0].UserID != 2 {
		t.Errorf("SimilarUsers(1) = %v, want user 2", sims)
	}
	if sims[0].Similarity <= 0 || sims[0].Similarity > 1 {
		t.Errorf("similarity = %g, want in (0, 1]", sims[0].Similarity)
	}

	if _, err := e.SimilarUsers(context.Background(), 999, 5); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("SimilarUsers(unknown) error = %v, want ErrUserNotFound", err)
	}
}

func TestEngineBeforeTraining(t *testing.T) {
	e := NewEngine(Config{}, &stubProvider{}, zerolog.Nop())

	if _, err := e.SimilarMovies(context.Background(), 1, 5); !errors.Is(err, ErrNotTrained) {
		t.Errorf("SimilarMovies() error = %v, want ErrNotTrained", err)
	}
	if _, err := e.RecommendForUser(context.Background(), 1, 5); !errors.Is(err, ErrNotTrained) {
		t.Errorf("RecommendForUser() error = %v, want ErrNotTrained", err)
	}
	if e.Status().Trained {
		t.Errorf("Status().Trained = true before training")
	}
}

func TestEngineTrainNoData(t *testing.T) {
	e := NewEngine(Config{}, &stubProvider{}, zerolog.Nop())
	if err := e.Train(context.Background()); !errors.Is(err, ErrNoData) {
		t.Errorf("Train(empty provider) error = %v, want ErrNoData", err)
	}
	status := e.Status()
	if status.Trained || status.LastError == "" {
		t.Errorf("status after failed training = %+v", status)
	}
}

// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package recommend implements the hybrid recommendation engine: TF-IDF
// content similarity over movie overviews and user-based collaborative
// filtering over the ratings matrix.
//
// The package depends on the database layer only through the DataProvider
// interface so it can be trained and tested against in-memory fixtures.
//
// # Thread Safety
//
// Models are safe for concurrent use. Training acquires an exclusive lock
// while prediction uses a shared lock; the engine additionally serializes
// whole training runs.
package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/cinematch/cinematch/internal/models"
)

var (
	// ErrNotTrained is returned when predictions are requested before the
	// first successful training run.
	ErrNotTrained = errors.New("recommend: model not trained")

	// ErrMovieNotFound is returned when the requested movie is not part of
	// the trained content corpus.
	ErrMovieNotFound = errors.New("recommend: movie not in trained model")

	// ErrUserNotFound is returned when the requested user has no ratings in
	// the trained model.
	ErrUserNotFound = errors.New("recommend: user not in trained model")

	// ErrTrainingInProgress is returned when a training run is requested
	// while another is still running.
	ErrTrainingInProgress = errors.New("recommend: training already in progress")

	// ErrNoData is returned when training finds nothing to train on.
	ErrNoData = errors.New("recommend: no training data")
)

// DataProvider supplies training data to the engine. Implemented by the
// database layer.
type DataProvider interface {
	// AllMovies returns every movie ordered by ascending movie ID. This
	// is both the content training corpus and the metadata source for
	// recommendation responses.
	AllMovies(ctx context.Context) ([]models.Movie, error)

	// ValidRatings returns all ratings whose movie exists, ordered by user
	// then movie.
	ValidRatings(ctx context.Context) ([]models.Rating, error)

	// TopRatedMovies returns the highest-voted movies for the cold-start
	// fallback.
	TopRatedMovies(ctx context.Context, limit int) ([]models.Movie, error)
}

// TrainingStatus describes the engine's training state.
type TrainingStatus struct {
	Trained       bool      `json:"trained"`
	InProgress    bool      `json:"in_progress"`
	ModelVersion  int       `json:"model_version"`
	LastTrainedAt time.Time `json:"last_trained_at"`
	LastDuration  string    `json:"last_duration,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	MovieCount    int       `json:"movie_count"`
	UserCount     int       `json:"user_count"`
	RatingCount   int       `json:"rating_count"`
}

// scored pairs a movie with a prediction score inside the models.
type scored struct {
	movieID int64
	score   float64
}

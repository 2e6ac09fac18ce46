// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cinematch/cinematch/internal/database"
	"github.com/cinematch/cinematch/internal/logging"
	"github.com/cinematch/cinematch/internal/models"
)

// defaultChunkSize bounds the number of rows inserted per transaction so
// a full MovieLens load does not hold one giant write transaction.
const defaultChunkSize = 5000

// Loader imports parsed MovieLens data into the database in chunks.
type Loader struct {
	db        *database.DB
	chunkSize int
}

// NewLoader creates a loader writing to the given database. chunkSize <= 0
// uses the default.
func NewLoader(db *database.DB, chunkSize int) *Loader {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Loader{db: db, chunkSize: chunkSize}
}

// LoadMoviesFile reads and imports a movies file, returning the number of
// rows imported.
func (l *Loader) LoadMoviesFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open movies file: %w", err)
	}
	defer f.Close()

	movies, err := ReadMovies(f, filepath.Base(path))
	if err != nil {
		return 0, err
	}
	if err := l.LoadMovies(ctx, movies); err != nil {
		return 0, err
	}
	return len(movies), nil
}

// LoadRatingsFile reads and imports a ratings file, returning the number of
// rows imported.
func (l *Loader) LoadRatingsFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open ratings file: %w", err)
	}
	defer f.Close()

	ratings, err := ReadRatings(f, filepath.Base(path))
	if err != nil {
		return 0, err
	}
	if err := l.LoadRatings(ctx, ratings); err != nil {
		return 0, err
	}
	return len(ratings), nil
}

// LoadMovies imports movies in chunked transactions.
func (l *Loader) LoadMovies(ctx context.Context, movies []models.Movie) error {
	start := time.Now()
	for i := 0; i < len(movies); i += l.chunkSize {
		end := i + l.chunkSize
		if end > len(movies) {
			end = len(movies)
		}
		if err := l.db.UpsertMovies(ctx, movies[i:end]); err != nil {
			return fmt.Errorf("load movies chunk %d: %w", i/l.chunkSize, err)
		}
	}
	logging.Info().Int("count", len(movies)).Dur("elapsed", time.Since(start)).Msg("movies loaded")
	return nil
}

// LoadRatings imports ratings in chunked transactions.
func (l *Loader) LoadRatings(ctx context.Context, ratings []models.Rating) error {
	start := time.Now()
	for i := 0; i < len(ratings); i += l.chunkSize {
		end := i + l.chunkSize
		if end > len(ratings) {
			end = len(ratings)
		}
		if err := l.db.InsertRatings(ctx, ratings[i:end]); err != nil {
			return fmt.Errorf("load ratings chunk %d: %w", i/l.chunkSize, err)
		}
	}
	logging.Info().Int("count", len(ratings)).Dur("elapsed", time.Since(start)).Msg("ratings loaded")
	return nil
}

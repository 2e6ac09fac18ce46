// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cinematch/cinematch/internal/metrics"
	"github.com/cinematch/cinematch/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("database: not found")

const movieColumns = `movie_id, title, genres, overview, poster_path, release_date, popularity, vote_average, tmdb_id`

func scanMovie(row interface{ Scan(...any) error }) (models.Movie, error) {
	var m models.Movie
	err := row.Scan(&m.MovieID, &m.Title, &m.Genres, &m.Overview, &m.PosterPath,
		&m.ReleaseDate, &m.Popularity, &m.VoteAverage, &m.TMDbID)
	return m, err
}

// UpsertMovies inserts or replaces movies in a single transaction.
// On conflict the title and genres are updated but enrichment columns are
// preserved, so re-running an import does not wipe TMDb metadata.
func (db *DB) UpsertMovies(ctx context.Context, movies []models.Movie) error {
	if len(movies) == 0 {
		return nil
	}

	start := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movies (movie_id, title, genres) VALUES (?, ?, ?)
		ON CONFLICT(movie_id) DO UPDATE SET title = excluded.title, genres = excluded.genres`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range movies {
		if _, err := stmt.ExecContext(ctx, m.MovieID, m.Title, m.Genres); err != nil {
			metrics.RecordDBQuery("upsert", "movies", time.Since(start), err)
			return fmt.Errorf("upsert movie %d: %w", m.MovieID, err)
		}
	}

	err = tx.Commit()
	metrics.RecordDBQuery("upsert", "movies", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("commit movies: %w", err)
	}
	return nil
}

// GetMovie returns a single movie by its MovieLens ID.
func (db *DB) GetMovie(ctx context.Context, movieID int64) (models.Movie, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE movie_id = ?`, movieID)
	m, err := scanMovie(row)
	metrics.RecordDBQuery("select", "movies", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Movie{}, ErrNotFound
	}
	if err != nil {
		return models.Movie{}, fmt.Errorf("get movie %d: %w", movieID, err)
	}
	return m, nil
}

// ListMovies returns movies ordered by ID with limit/offset pagination.
func (db *DB) ListMovies(ctx context.Context, limit, offset int) ([]models.Movie, error) {
	if limit <= 0 {
		limit = 50
	}
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies ORDER BY movie_id LIMIT ? OFFSET ?`, limit, offset)
	metrics.RecordDBQuery("select", "movies", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	return collectMovies(rows)
}

// SearchMovies returns movies whose title matches the given substring,
// case-insensitively, ordered by ID.
func (db *DB) SearchMovies(ctx context.Context, query string, limit int) ([]models.Movie, error) {
	if limit <= 0 {
		limit = 50
	}
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE title LIKE '%' || ? || '%' ORDER BY movie_id LIMIT ?`,
		query, limit)
	metrics.RecordDBQuery("select", "movies", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("search movies: %w", err)
	}
	defer rows.Close()

	return collectMovies(rows)
}

// MoviesByGenre returns movies whose pipe-joined genre list contains the
// given genre, case-insensitively, ordered by ID.
func (db *DB) MoviesByGenre(ctx context.Context, genre string, limit int) ([]models.Movie, error) {
	if limit <= 0 {
		limit = 50
	}
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE genres LIKE '%' || ? || '%' COLLATE NOCASE ORDER BY movie_id LIMIT ?`,
		genre, limit)
	metrics.RecordDBQuery("select", "movies", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("movies by genre: %w", err)
	}
	defer rows.Close()

	return collectMovies(rows)
}

// TopRatedMovies returns the highest-voted movies, used as the cold-start
// fallback for users with no rating history. Ties break on ascending ID.
func (db *DB) TopRatedMovies(ctx context.Context, limit int) ([]models.Movie, error) {
	if limit <= 0 {
		limit = 10
	}
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies ORDER BY vote_average DESC, movie_id ASC LIMIT ?`, limit)
	metrics.RecordDBQuery("select", "movies", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("top rated movies: %w", err)
	}
	defer rows.Close()

	return collectMovies(rows)
}

// AllMovies returns every movie ordered by ID.
func (db *DB) AllMovies(ctx context.Context) ([]models.Movie, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies ORDER BY movie_id`)
	metrics.RecordDBQuery("select", "movies", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("all movies: %w", err)
	}
	defer rows.Close()

	return collectMovies(rows)
}

// MoviesMissingEnrichment returns movies that have no TMDb metadata yet,
// up to limit (0 means no limit).
func (db *DB) MoviesMissingEnrichment(ctx context.Context, limit int) ([]models.Movie, error) {
	q := `SELECT ` + movieColumns + ` FROM movies WHERE tmdb_id = 0 ORDER BY movie_id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, q, args...)
	metrics.RecordDBQuery("select", "movies", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("movies missing enrichment: %w", err)
	}
	defer rows.Close()

	return collectMovies(rows)
}

// ApplyEnrichment writes TMDb metadata back onto the movie row.
func (db *DB) ApplyEnrichment(ctx context.Context, e models.EnrichedMovie) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `
		UPDATE movies
		SET overview = ?, poster_path = ?, release_date = ?, popularity = ?, vote_average = ?, tmdb_id = ?
		WHERE movie_id = ?`,
		e.Overview, e.PosterPath, e.ReleaseDate, e.Popularity, e.VoteAverage, e.TMDbID, e.MovieID)
	metrics.RecordDBQuery("update", "movies", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("apply enrichment for movie %d: %w", e.MovieID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountMovies returns the total number of movies.
func (db *DB) CountMovies(ctx context.Context) (int64, error) {
	start := time.Now()
	var n int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n)
	metrics.RecordDBQuery("select", "movies", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return n, nil
}

func collectMovies(rows *sql.Rows) ([]models.Movie, error) {
	var out []models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}
	return out, nil
}

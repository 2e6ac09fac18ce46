// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cinematch/cinematch/internal/metrics"
	"github.com/cinematch/cinematch/internal/models"
)

// InsertRatings inserts ratings in a single transaction, replacing any
// existing rating by the same user for the same movie.
func (db *DB) InsertRatings(ctx context.Context, ratings []models.Rating) error {
	if len(ratings) == 0 {
		return nil
	}

	start := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ratings (user_id, movie_id, rating, rated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, movie_id) DO UPDATE SET rating = excluded.rating, rated_at = excluded.rated_at`)
	if err != nil {
		return fmt.Errorf("prepare rating insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range ratings {
		ratedAt := r.RatedAt
		if ratedAt.IsZero() {
			ratedAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, r.UserID, r.MovieID, r.Rating, ratedAt); err != nil {
			metrics.RecordDBQuery("insert", "ratings", time.Since(start), err)
			return fmt.Errorf("insert rating user=%d movie=%d: %w", r.UserID, r.MovieID, err)
		}
	}

	err = tx.Commit()
	metrics.RecordDBQuery("insert", "ratings", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("commit ratings: %w", err)
	}
	return nil
}

// ValidRatings returns all ratings whose movie exists in the movies table,
// ordered by user then movie. Ratings referencing unknown movies are
// excluded so the collaborative model never trains on dangling rows.
func (db *DB) ValidRatings(ctx context.Context) ([]models.Rating, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.user_id, r.movie_id, r.rating, r.rated_at
		FROM ratings r
		INNER JOIN movies m ON m.movie_id = r.movie_id
		ORDER BY r.user_id, r.movie_id`)
	metrics.RecordDBQuery("select", "ratings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("valid ratings: %w", err)
	}
	defer rows.Close()

	var out []models.Rating
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.UserID, &r.MovieID, &r.Rating, &r.RatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return out, nil
}

// RatingsByUser returns one user's ratings ordered by movie ID.
func (db *DB) RatingsByUser(ctx context.Context, userID int64) ([]models.Rating, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, movie_id, rating, rated_at
		FROM ratings WHERE user_id = ? ORDER BY movie_id`, userID)
	metrics.RecordDBQuery("select", "ratings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("ratings for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []models.Rating
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.UserID, &r.MovieID, &r.Rating, &r.RatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return out, nil
}

// ListUsers returns the distinct user IDs present in the ratings table,
// ascending.
func (db *DB) ListUsers(ctx context.Context) ([]int64, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM ratings ORDER BY user_id`)
	metrics.RecordDBQuery("select", "ratings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

// CountRatings returns the total number of ratings.
func (db *DB) CountRatings(ctx context.Context) (int64, error) {
	start := time.Now()
	var n int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings`).Scan(&n)
	metrics.RecordDBQuery("select", "ratings", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return n, nil
}

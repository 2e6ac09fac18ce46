// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package database provides the SQLite persistence layer for movies and
// ratings. It uses the pure-Go modernc.org/sqlite driver so the binary
// stays cgo-free.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS movies (
	movie_id     INTEGER PRIMARY KEY,
	title        TEXT    NOT NULL,
	genres       TEXT    NOT NULL DEFAULT '',
	overview     TEXT    NOT NULL DEFAULT '',
	poster_path  TEXT    NOT NULL DEFAULT '',
	release_date TEXT    NOT NULL DEFAULT '',
	popularity   REAL    NOT NULL DEFAULT 0,
	vote_average REAL    NOT NULL DEFAULT 0,
	tmdb_id      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ratings (
	user_id  INTEGER NOT NULL,
	movie_id INTEGER NOT NULL,
	rating   REAL    NOT NULL,
	rated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, movie_id)
);

CREATE INDEX IF NOT EXISTS idx_ratings_movie ON ratings(movie_id);
CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title);
`

// DB wraps the SQLite connection and exposes typed queries for movies
// and ratings.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the SQLite database at the configured
// path, applies connection pragmas, and ensures the schema exists.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	maxConn := cfg.MaxOpenConn
	if maxConn <= 0 {
		maxConn = 1
	}
	conn.SetMaxOpenConns(maxConn)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.ensureSchema(); err != nil {
		conn.Close()
		return nil, err
	}

	logging.Info().Str("path", cfg.Path).Msg("SQLite database opened")
	return db, nil
}

// OpenMemory opens an in-memory database with the schema applied.
// Intended for tests.
func OpenMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", "file::memory:?cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open in-memory sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.ensureSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) ensureSchema() error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models defines data structures shared across CineMatch: movies,
// ratings, enriched metadata documents, and user feedback entries.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Movie is a single movie row from the relational store.
//
// MovieID is the MovieLens identifier and the primary key across the whole
// system. Fields past Genres come from TMDb enrichment and are zero-valued
// until an enrichment run has filled them in.
type Movie struct {
	MovieID     int64   `json:"movie_id"`
	Title       string  `json:"title"`
	Genres      string  `json:"genres"`
	Overview    string  `json:"overview,omitempty"`
	PosterPath  string  `json:"poster_path,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
	Popularity  float64 `json:"popularity,omitempty"`
	VoteAverage float64 `json:"vote_average,omitempty"`
	TMDbID      int64   `json:"tmdb_id,omitempty"`
}

// Rating is one user's rating of one movie. Rating values follow the
// MovieLens scale (0.5 to 5.0 in half-star steps for CSV data, 1 to 5 for
// the legacy .dat format).
type Rating struct {
	UserID  int64     `json:"user_id"`
	MovieID int64     `json:"movie_id"`
	Rating  float64   `json:"rating"`
	RatedAt time.Time `json:"rated_at"`
}

// EnrichedMovie is the TMDb metadata document cached in the document store
// under key "movie:<movie_id>". It carries the raw search result so an
// enrichment re-run can skip movies already resolved.
type EnrichedMovie struct {
	MovieID     int64     `json:"movie_id"`
	TMDbID      int64     `json:"tmdb_id"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	PosterPath  string    `json:"poster_path"`
	ReleaseDate string    `json:"release_date"`
	Popularity  float64   `json:"popularity"`
	VoteAverage float64   `json:"vote_average"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Feedback is one recorded user reaction to a recommendation. Entries are
// append-only and stored in the document store keyed by timestamp and ID so
// they scan in insertion order.
type Feedback struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	MovieID   int64     `json:"movie_id"`
	Method    string    `json:"method"`            // "content", "collaborative", or "popular"
	Action    string    `json:"action"`            // "click", "like", "dislike", "watched"
	Comment   string    `json:"comment,omitempty"` // free-form, optional
	CreatedAt time.Time `json:"created_at"`
}

// Recommendation is a single scored movie returned by the engine.
type Recommendation struct {
	MovieID     int64   `json:"movie_id"`
	Title       string  `json:"title"`
	Genres      string  `json:"genres,omitempty"`
	PosterPath  string  `json:"poster_path,omitempty"`
	Score       float64 `json:"score"`
	Method      string  `json:"method"`
	VoteAverage float64 `json:"vote_average,omitempty"`
}

// SimilarUser is one neighbor in the user-user similarity ranking.
type SimilarUser struct {
	UserID     int64   `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

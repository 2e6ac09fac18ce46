// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cinematch/cinematch/internal/logging"
	"github.com/cinematch/cinematch/internal/models"
)

// MovieSource lists movies to enrich and receives the metadata back.
// Implemented by the database layer.
type MovieSource interface {
	MoviesMissingEnrichment(ctx context.Context, limit int) ([]models.Movie, error)
	ApplyEnrichment(ctx context.Context, e models.EnrichedMovie) error
}

// DocumentCache caches enrichment documents between runs. Implemented by
// the document store.
type DocumentCache interface {
	HasEnrichedMovie(movieID int64) (bool, error)
	GetEnrichedMovie(movieID int64) (models.EnrichedMovie, error)
	PutEnrichedMovie(e models.EnrichedMovie) error
}

// Stats summarizes one enrichment run.
type Stats struct {
	Processed int
	Enriched  int
	Cached    int
	NoMatch   int
	Failed    int
}

// Enricher walks the movie catalog and fills in TMDb metadata. Movies
// with a cached enrichment document are applied from cache without
// touching the API, so interrupted runs resume where they stopped.
type Enricher struct {
	client       *Client
	source       MovieSource
	cache        DocumentCache
	skipEnriched bool
}

// NewEnricher wires a TMDb client to the movie catalog and document cache.
func NewEnricher(client *Client, source MovieSource, cache DocumentCache, skipEnriched bool) *Enricher {
	return &Enricher{
		client:       client,
		source:       source,
		cache:        cache,
		skipEnriched: skipEnriched,
	}
}

// Run enriches up to limit movies (0 means all) and returns run statistics.
// Individual lookup failures are logged and skipped; the run aborts only
// when the context is cancelled or the circuit breaker opens.
func (e *Enricher) Run(ctx context.Context, limit int) (Stats, error) {
	movies, err := e.source.MoviesMissingEnrichment(ctx, limit)
	if err != nil {
		return Stats{}, fmt.Errorf("list movies to enrich: %w", err)
	}

	var stats Stats
	start := time.Now()
	for _, m := range movies {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Processed++

		if err := e.enrichOne(ctx, m, &stats); err != nil {
			if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) {
				return stats, err
			}
			stats.Failed++
			logging.Warn().Err(err).Int64("movie_id", m.MovieID).Str("title", m.Title).
				Msg("enrichment failed, skipping")
		}
	}

	logging.Info().
		Int("processed", stats.Processed).
		Int("enriched", stats.Enriched).
		Int("cached", stats.Cached).
		Int("no_match", stats.NoMatch).
		Int("failed", stats.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("enrichment run complete")
	return stats, nil
}

func (e *Enricher) enrichOne(ctx context.Context, m models.Movie, stats *Stats) error {
	if e.skipEnriched {
		ok, err := e.cache.HasEnrichedMovie(m.MovieID)
		if err != nil {
			return err
		}
		if ok {
			doc, err := e.cache.GetEnrichedMovie(m.MovieID)
			if err != nil {
				return err
			}
			stats.Cached++
			return e.source.ApplyEnrichment(ctx, doc)
		}
	}

	result, err := e.client.SearchMovie(ctx, CleanTitle(m.Title))
	if errors.Is(err, ErrNoResults) {
		stats.NoMatch++
		logging.Debug().Int64("movie_id", m.MovieID).Str("title", m.Title).Msg("no TMDb match")
		return nil
	}
	if err != nil {
		return err
	}

	doc := models.EnrichedMovie{
		MovieID:     m.MovieID,
		TMDbID:      result.ID,
		Title:       result.Title,
		Overview:    result.Overview,
		PosterPath:  result.PosterPath,
		ReleaseDate: result.ReleaseDate,
		Popularity:  result.Popularity,
		VoteAverage: result.VoteAverage,
		FetchedAt:   time.Now().UTC(),
	}
	if err := e.cache.PutEnrichedMovie(doc); err != nil {
		return fmt.Errorf("cache enrichment: %w", err)
	}
	if err := e.source.ApplyEnrichment(ctx, doc); err != nil {
		return fmt.Errorf("apply enrichment: %w", err)
	}

	stats.Enriched++
	return nil
}

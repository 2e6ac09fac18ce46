// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command enrich fills in TMDb metadata (overview, poster, votes) for
// movies imported from MovieLens. Results are cached in the document
// store, so interrupted runs resume where they stopped.
//
// Requires CINEMATCH_TMDB_API_KEY (or tmdb.api_key in the config file).
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/database"
	"github.com/cinematch/cinematch/internal/docstore"
	"github.com/cinematch/cinematch/internal/enrich"
	"github.com/cinematch/cinematch/internal/logging"
)

func main() {
	limit := flag.Int("limit", 0, "maximum number of movies to enrich (0 = all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Init(logging.DefaultConfig())
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if cfg.TMDB.APIKey == "" {
		logging.Fatal().Msg("tmdb.api_key is required for enrichment")
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	store, err := docstore.Open(cfg.DocStore)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open document store")
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enricher := enrich.NewEnricher(enrich.NewClient(cfg.TMDB), db, store, cfg.TMDB.SkipEnriched)
	stats, err := enricher.Run(ctx, *limit)
	if err != nil {
		logging.Fatal().Err(err).
			Int("processed", stats.Processed).
			Int("enriched", stats.Enriched).
			Msg("enrichment run aborted")
	}
}

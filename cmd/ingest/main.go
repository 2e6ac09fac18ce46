// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command ingest imports MovieLens movies and ratings files into the
// CineMatch database. Both the ml-1m .dat format and the ml-latest CSV
// format are supported.
//
// Usage:
//
//	ingest -movies data/ml-1m/movies.dat -ratings data/ml-1m/ratings.dat
//	ingest -movies data/ml-latest-small/movies.csv
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/database"
	"github.com/cinematch/cinematch/internal/ingest"
	"github.com/cinematch/cinematch/internal/logging"
)

func main() {
	moviesPath := flag.String("movies", "", "path to a MovieLens movies file (.dat or .csv)")
	ratingsPath := flag.String("ratings", "", "path to a MovieLens ratings file (.dat or .csv)")
	chunkSize := flag.Int("chunk", 0, "rows per transaction (0 = default)")
	flag.Parse()

	if *moviesPath == "" && *ratingsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

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

	db, err := database.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := ingest.NewLoader(db, *chunkSize)

	if *moviesPath != "" {
		n, err := loader.LoadMoviesFile(ctx, *moviesPath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", *moviesPath).Msg("movie import failed")
		}
		logging.Info().Int("count", n).Str("path", *moviesPath).Msg("movies imported")
	}

	if *ratingsPath != "" {
		n, err := loader.LoadRatingsFile(ctx, *ratingsPath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", *ratingsPath).Msg("rating import failed")
		}
		logging.Info().Int("count", n).Str("path", *ratingsPath).Msg("ratings imported")
	}
}

// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command server runs the CineMatch recommendation API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cinematch/cinematch/internal/api"
	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/database"
	"github.com/cinematch/cinematch/internal/docstore"
	"github.com/cinematch/cinematch/internal/logging"
	"github.com/cinematch/cinematch/internal/recommend"
	"github.com/cinematch/cinematch/internal/supervisor"
	"github.com/cinematch/cinematch/internal/supervisor/services"
)

func main() {
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
	logging.Info().Msg("starting CineMatch server")

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

	engine := recommend.NewEngine(recommend.Config{
		TopK:        cfg.Recommend.TopK,
		Neighbors:   cfg.Recommend.Neighbors,
		MinRatings:  cfg.Recommend.MinRatings,
		MaxFeatures: cfg.Recommend.MaxFeatures,
		CacheTTL:    cfg.Recommend.CacheTTL,
		CacheSize:   cfg.Recommend.CacheSize,
	}, db, logging.Logger())

	server := api.NewServer(cfg.Server, db, store, engine)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(services.NewDocStoreGCService(store, cfg.DocStore.GCInterval))
	if cfg.Recommend.Enabled {
		tree.AddAPIService(services.NewTrainerService(
			engine, cfg.Recommend.TrainingInterval, cfg.Recommend.TrainOnStartup))
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("listening")
	if err := tree.Serve(ctx); err != nil && err != context.Canceled {
		logging.Error().Err(err).Msg("supervisor exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("shutdown complete")
}

// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"errors"
	"time"

	"github.com/cinematch/cinematch/internal/logging"
	"github.com/cinematch/cinematch/internal/recommend"
)

// Trainer is the part of the recommendation engine the service needs.
type Trainer interface {
	Train(ctx context.Context) error
}

// TrainerService retrains the recommendation engine on a fixed interval,
// optionally running an initial training pass on startup so the API is
// ready as soon as possible.
type TrainerService struct {
	trainer        Trainer
	interval       time.Duration
	trainOnStartup bool
}

// NewTrainerService creates the periodic trainer. An interval <= 0
// disables periodic retraining; the service then only handles the startup
// pass and waits for shutdown.
func NewTrainerService(trainer Trainer, interval time.Duration, trainOnStartup bool) *TrainerService {
	return &TrainerService{
		trainer:        trainer,
		interval:       interval,
		trainOnStartup: trainOnStartup,
	}
}

// Serve implements suture.Service.
func (t *TrainerService) Serve(ctx context.Context) error {
	if t.trainOnStartup {
		t.train(ctx)
	}

	if t.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.train(ctx)
		}
	}
}

// train runs one training pass. Failures are logged, not returned: a bad
// training run must not crash-loop the service, and the engine keeps
// serving the previous model.
func (t *TrainerService) train(ctx context.Context) {
	err := t.trainer.Train(ctx)
	switch {
	case err == nil:
	case errors.Is(err, recommend.ErrTrainingInProgress):
		logging.Debug().Msg("scheduled training skipped, run already in progress")
	case errors.Is(err, recommend.ErrNoData):
		logging.Warn().Msg("scheduled training skipped, no data loaded yet")
	case errors.Is(err, context.Canceled):
	default:
		logging.Error().Err(err).Msg("scheduled training failed")
	}
}

// String identifies the service in supervisor logs.
func (t *TrainerService) String() string {
	return "model-trainer"
}

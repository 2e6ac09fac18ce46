// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package supervisor builds the suture supervision tree for the CineMatch
// server process. The tree has two layers: data (document store GC) and
// api (HTTP server, model trainer), so a crashing background job cannot
// take the API down with it.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree manages the supervisor hierarchy.
type Tree struct {
	root *suture.Supervisor
	data *suture.Supervisor
	api  *suture.Supervisor
}

// NewTree creates the supervisor tree. Supervisor events are logged via
// the provided slog logger (bridged to the application logger).
func NewTree(logger *slog.Logger, config TreeConfig) *Tree {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: logger}
	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("cinematch", rootSpec)
	data := suture.New("data-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(data)
	root.Add(api)

	return &Tree{root: root, data: data, api: api}
}

// AddDataService adds a service to the data layer supervisor.
func (t *Tree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.data.Add(svc)
}

// AddAPIService adds a service to the API layer supervisor.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve starts the supervisor tree and blocks until the context is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a background goroutine and returns a
// channel receiving the terminal error.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package services wraps the long-running components of the CineMatch
// server as suture services.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPServer matches *http.Server's lifecycle methods so the service can
// be tested with a mock.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService adapts http.Server's blocking ListenAndServe to
// suture's context-aware Serve.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps an HTTP server as a supervised service.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. It runs the server until the context is
// canceled, then shuts down gracefully within the shutdown timeout.
// http.ErrServerClosed is treated as a clean exit.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String identifies the service in supervisor logs.
func (h *HTTPServerService) String() string {
	return "http-server"
}

// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"time"
)

// GCRunner is the part of the document store this service needs.
type GCRunner interface {
	RunGC(ctx context.Context, interval time.Duration)
}

// DocStoreGCService runs Badger value-log garbage collection on an
// interval for the life of the process.
type DocStoreGCService struct {
	store    GCRunner
	interval time.Duration
}

// NewDocStoreGCService creates the GC service.
func NewDocStoreGCService(store GCRunner, interval time.Duration) *DocStoreGCService {
	return &DocStoreGCService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (s *DocStoreGCService) Serve(ctx context.Context) error {
	s.store.RunGC(ctx, s.interval)
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *DocStoreGCService) String() string {
	return "docstore-gc"
}

// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// contextKey is a private type for context keys defined in this package.
type contextKey string

const (
	// requestIDKey is the context key for HTTP request IDs.
	requestIDKey contextKey = "request_id"

	// loggerKey is the context key for storing a logger instance.
	loggerKey contextKey = "logger"
)

// GenerateRequestID creates a new unique request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithRequestID returns a new context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a pre-configured logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger stored in the context, or the global logger with
// the request ID attached when one is present.
func Ctx(ctx context.Context) *zerolog.Logger {
	if l, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return &l
	}
	logger := Logger()
	if id := RequestIDFromContext(ctx); id != "" {
		logger = logger.With().Str("request_id", id).Logger()
	}
	return &logger
}

// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the REST surface of CineMatch: movie catalog
// queries, recommendation endpoints, feedback recording, and health
// probes. All endpoints share a standardized response envelope.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/cinematch/cinematch/internal/logging"
)

// APIResponse is the standardized response wrapper for all API endpoints.
type APIResponse struct {
	// Success indicates whether the request was successful
	Success bool `json:"success"`

	// Data contains the response payload (null on error)
	Data interface{} `json:"data,omitempty"`

	// Error contains error details (null on success)
	Error *APIError `json:"error,omitempty"`

	// Meta contains optional metadata about the response
	Meta *APIMeta `json:"meta,omitempty"`
}

// APIError represents an error response.
type APIError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details contains additional error details (optional)
	Details interface{} `json:"details,omitempty"`

	// RequestID is the request ID for tracing
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta contains optional response metadata.
type APIMeta struct {
	RequestID  string          `json:"request_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	DurationMs int64           `json:"duration_ms,omitempty"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

// PaginationMeta contains pagination information for list responses.
type PaginationMeta struct {
	Total   int64 `json:"total,omitempty"`
	Count   int   `json:"count"`
	Offset  int   `json:"offset,omitempty"`
	Limit   int   `json:"limit,omitempty"`
	HasMore bool  `json:"has_more"`
}

// Error codes for API responses
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeExternalServiceFail = "EXTERNAL_SERVICE_FAILED"
)

// ResponseWriter provides methods for writing standardized API responses.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a new response writer.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{
		w:         w,
		r:         r,
		startTime: time.Now(),
	}
}

// Success writes a successful response with data.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.SuccessWithMeta(data, nil)
}

// SuccessWithMeta writes a successful response with data and metadata.
func (rw *ResponseWriter) SuccessWithMeta(data interface{}, meta *APIMeta) {
	if meta == nil {
		meta = &APIMeta{}
	}
	meta.Timestamp = time.Now()
	meta.DurationMs = time.Since(rw.startTime).Milliseconds()
	meta.RequestID = logging.RequestIDFromContext(rw.r.Context())

	rw.writeJSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// SuccessWithPagination writes a successful paginated response.
func (rw *ResponseWriter) SuccessWithPagination(data interface{}, pagination *PaginationMeta) {
	rw.SuccessWithMeta(data, &APIMeta{Pagination: pagination})
}

// Created writes a 201 Created response.
func (rw *ResponseWriter) Created(data interface{}) {
	meta := &APIMeta{
		Timestamp:  time.Now(),
		DurationMs: time.Since(rw.startTime).Milliseconds(),
		RequestID:  logging.RequestIDFromContext(rw.r.Context()),
	}
	rw.writeJSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Error writes an error response with the given status code.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, code, message, nil)
}

// ErrorWithDetails writes an error response with additional details.
func (rw *ResponseWriter) ErrorWithDetails(statusCode int, code, message string, details interface{}) {
	requestID := logging.RequestIDFromContext(rw.r.Context())

	rw.writeJSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
		Meta: &APIMeta{
			Timestamp:  time.Now(),
			DurationMs: time.Since(rw.startTime).Milliseconds(),
			RequestID:  requestID,
		},
	})
}

// BadRequest writes a 400 Bad Request error.
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

// ValidationFailed writes a 400 error carrying field-level details.
func (rw *ResponseWriter) ValidationFailed(message string, details interface{}) {
	rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, message, details)
}

// NotFound writes a 404 Not Found error.
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

// Conflict writes a 409 Conflict error.
func (rw *ResponseWriter) Conflict(message string) {
	rw.Error(http.StatusConflict, ErrCodeConflict, message)
}

// InternalError writes a 500 Internal Server Error.
func (rw *ResponseWriter) InternalError(message string) {
	rw.Error(http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable writes a 503 Service Unavailable error.
func (rw *ResponseWriter) ServiceUnavailable(message string) {
	rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

func (rw *ResponseWriter) writeJSON(statusCode int, response APIResponse) {
	rw.w.Header().Set("Content-Type", "application/json")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(response); err != nil {
		logging.Error().Err(err).Msg("failed to encode API response")
	}
}

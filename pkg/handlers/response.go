// Package handlers exposes the HTTP API. Handlers stay thin: decode,
// call a service, encode. All policy lives in the services and the
// access gate.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
)

// ApiResponse wraps data in the format expected by the frontend.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ApiResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteServiceError maps a service error to an HTTP error response.
// Access denials are deliberately uniform: the body never says whether
// the table exists, is hidden, or was simply not granted.
func WriteServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var writeErr error
	switch {
	case errors.Is(err, apperrors.ErrAccessDenied):
		writeErr = ErrorResponse(w, http.StatusForbidden, "access_denied", "Access denied")
	case errors.Is(err, apperrors.ErrNotFound):
		writeErr = ErrorResponse(w, http.StatusNotFound, "not_found", "Not found")
	case errors.Is(err, apperrors.ErrInvalidIdentifier),
		errors.Is(err, apperrors.ErrInvalidColumn),
		errors.Is(err, apperrors.ErrInvalidOperator),
		errors.Is(err, apperrors.ErrInvalidValue),
		errors.Is(err, apperrors.ErrInvalidJoin),
		errors.Is(err, apperrors.ErrInvalidRole):
		writeErr = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, apperrors.ErrExportTooLarge):
		writeErr = ErrorResponse(w, http.StatusRequestEntityTooLarge, "export_too_large", err.Error())
	default:
		logger.Error("Request failed", zap.Error(err))
		writeErr = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
	if writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}

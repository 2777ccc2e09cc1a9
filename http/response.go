package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/docvault"
)

// retryAfterSeconds is advertised on 503 responses caused by transient backend failures.
const retryAfterSeconds = "5"

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, docvault.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "Document not found")
	case errors.Is(err, docvault.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, docvault.ErrConflict):
		WriteError(w, http.StatusPreconditionFailed, "conflict", "Document was modified concurrently")
	case errors.Is(err, docvault.ErrUnauthorized):
		WriteError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.As(err, &maxErr):
		WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "Request body too large")
	case errors.Is(err, docvault.ErrTransient):
		slog.Warn("storage temporarily unavailable", "error", err)
		w.Header().Set("Retry-After", retryAfterSeconds)
		WriteError(w, http.StatusServiceUnavailable, "storage_unavailable", "Storage is temporarily unavailable")
	case errors.Is(err, docvault.ErrAccessDenied):
		slog.Error("storage rejected credentials", "error", err)
		WriteError(w, http.StatusInternalServerError, "storage_access_denied", "Storage access denied")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// statusFor maps err to the status HandleError would write, for bodiless responses.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, docvault.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, docvault.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, docvault.ErrConflict):
		return http.StatusPreconditionFailed
	case errors.Is(err, docvault.ErrUnauthorized):
		return http.StatusForbidden
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, docvault.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

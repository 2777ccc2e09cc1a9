package http_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/docvault"
	docvaulthttp "github.com/sagarc03/docvault/http"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", docvault.ErrNotFound, http.StatusNotFound, "not_found"},
		{"invalid input", fmt.Errorf("put: %w", docvault.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{"conflict", docvault.ErrConflict, http.StatusPreconditionFailed, "conflict"},
		{"unauthorized", docvault.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
		{"transient", docvault.ErrTransient, http.StatusServiceUnavailable, "storage_unavailable"},
		{"access denied", docvault.ErrAccessDenied, http.StatusInternalServerError, "storage_access_denied"},
		{"too large", fmt.Errorf("put: %w", &http.MaxBytesError{Limit: 4}), http.StatusRequestEntityTooLarge, "too_large"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			docvaulthttp.HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), `"error":"`+tt.wantCode+`"`)
		})
	}
}

func TestHandleError_InternalDetailsHidden(t *testing.T) {
	rec := httptest.NewRecorder()

	docvaulthttp.HandleError(rec, errors.New("dial tcp 10.0.0.7:5432: secret-host"))

	assert.NotContains(t, rec.Body.String(), "secret-host")
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := docvaulthttp.WriteJSON(rec, http.StatusCreated, map[string]string{"status": "ok"})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess_WrapsDataEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusAccepted, map[string]any{"id": "job-1", "status": "running", "total": 3})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"id":"job-1","status":"running","total":3}}`, w.Body.String())
}

func TestJSON_NilDataWritesNoBody(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestError_OmitsEmptyCode(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "query cannot be empty")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"query cannot be empty"}`, w.Body.String())
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation error", domain.NewDomainError(domain.ErrCodeValidation, "invalid"), http.StatusBadRequest},
		{"missing column", domain.MissingColumnError("Cargo"), http.StatusBadRequest},
		{"not found error", domain.ErrJobNotFound, http.StatusNotFound},
		{"report not ready", domain.ErrReportNotReady, http.StatusNotFound},
		{"upstream error", domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "search api request failed", errors.New("status 403")), http.StatusBadGateway},
		{"wrapped domain error", fmt.Errorf("start batch: %w", domain.ErrEmptyBatch), http.StatusBadRequest},
		{"body too large", fmt.Errorf("read upload: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{"internal error", domain.NewDomainError(domain.ErrCodeInternalError, "internal"), http.StatusInternalServerError},
		{"unknown domain error", domain.NewDomainError("UNKNOWN", "unknown"), http.StatusInternalServerError},
		{"non-domain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DomainErrorToHTTP(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHandleError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.ErrJobNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Contains(t, result.Error, "not found")
	assert.Equal(t, domain.ErrCodeNotFound, result.Code)
}

func TestHandleError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "internal server error", result.Error)
	assert.Equal(t, domain.ErrCodeInternalError, result.Code)
}

func TestHandleError_UpstreamKeepsCause(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "search api request failed", errors.New("status 429")))

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Contains(t, result.Error, "status 429")
	assert.Equal(t, domain.ErrCodeUpstream, result.Code)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, domain.ErrCodeValidation, ErrorCode(fmt.Errorf("wrap: %w", domain.ErrEmptyQuery)))
	assert.Equal(t, domain.ErrCodeValidation, ErrorCode(&http.MaxBytesError{Limit: 1}))
	assert.Equal(t, "", ErrorCode(assert.AnError))
}

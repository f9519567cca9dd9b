package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	assert.Equal(t, "[VALIDATION_ERROR] query cannot be empty", ErrEmptyQuery.Error())

	withCause := NewDomainErrorWithCause(ErrCodeUpstream, "search api request failed", errors.New("status 403"))
	assert.Equal(t, "[UPSTREAM_ERROR] search api request failed: status 403", withCause.Error())
}

func TestDomainError_IsMatchesWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("upload: %w", MissingColumnError("Nome"))

	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.NotErrorIs(t, err, ErrEmptyBatch)
	assert.Contains(t, err.Error(), `"Nome"`)

	var colErr *ColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "Nome", colErr.Column)
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewDomainErrorWithCause(ErrCodeInternalError, "failed", cause)

	assert.ErrorIs(t, err, cause)
}

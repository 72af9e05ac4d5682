package errors

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeStatuses(t *testing.T) {
	cases := map[string]int{
		NewInvalidInputError("x").Code:     http.StatusBadRequest,
		NewNotFoundError("x").Code:         http.StatusNotFound,
		NewMethodNotAllowedError("x").Code: http.StatusMethodNotAllowed,
		NewInternalError("x").Code:         http.StatusInternalServerError,
		NewExternalServiceError("x").Code:  http.StatusBadGateway,
		NewConfigInvalidError("x").Code:    http.StatusServiceUnavailable,
		CodeRateLimited:                    http.StatusTooManyRequests,
		CodeNoContentFound:                 http.StatusNotFound,
		CodeDatabase:                       http.StatusInternalServerError,
		"SERVICE_UNAVAILABLE":              http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		assert.Equal(t, status, HTTPStatusFromCode(code), code)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(nil))
}

func TestWrapRecordsCause(t *testing.T) {
	cause := stderrors.New("database is locked")
	env := WrapDatabaseError(context.Background(), cause, "store close failed")

	assert.Equal(t, CodeDatabase, env.Code)
	assert.Equal(t, "store close failed", env.Message)
	assert.NotEmpty(t, env.CorrelationID)
	require.NotNil(t, env.Context)
	assert.Equal(t, "database is locked", env.Context["wrapped_error"])
	assert.Equal(t, "database is locked", ResponseDetails(env)["wrapped_error"])
}

func TestEnsureEnvelope(t *testing.T) {
	env := NewInvalidInputError("bad")
	assert.Same(t, env, EnsureEnvelope(env))

	wrapped := EnsureEnvelope(stderrors.New("boom"))
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.Equal(t, "boom", wrapped.Context["wrapped_error"])

	assert.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
}

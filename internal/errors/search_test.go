package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/ailink"
)

func TestWrapSearchErrorMapping(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		code      string
		status    int
		retryable bool
	}{
		{"config", &ailink.SearchError{Kind: ailink.ErrorKindConfig, Code: ailink.CodeConfig}, CodeConfigInvalid, http.StatusServiceUnavailable, false},
		{"rate limit", &ailink.SearchError{Kind: ailink.ErrorKindRateLimit, RetryAfter: 30 * time.Second}, CodeRateLimited, http.StatusTooManyRequests, true},
		{"empty", &ailink.SearchError{Kind: ailink.ErrorKindEmpty}, CodeNoContentFound, http.StatusNotFound, false},
		{"transport", &ailink.SearchError{Kind: ailink.ErrorKindTransport}, CodeExternal, http.StatusBadGateway, true},
		{"unknown", stderrors.New("boom"), CodeInternal, http.StatusInternalServerError, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			envelope := WrapSearchError(context.Background(), tc.err)
			assert.Equal(t, tc.code, envelope.Code)
			assert.Equal(t, tc.status, HTTPStatusFromEnvelope(envelope))
			assert.Equal(t, ailink.UserMessage(ailink.KindOf(tc.err)), envelope.Message)
			assert.Equal(t, tc.retryable, envelope.Details["retryable"])
			assert.NotEmpty(t, envelope.CorrelationID)
		})
	}
}

func TestRespondWithSearchErrorRateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search/stream?q=x", nil)

	RespondWithSearchError(rec, req, &ailink.SearchError{
		Kind:       ailink.ErrorKindRateLimit,
		Code:       ailink.CodeProviderRateLimit,
		RetryAfter: 1500 * time.Millisecond,
	})

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeRateLimited, body.Error.Code)
	assert.Equal(t, "সার্ভার কোটা শেষ হয়েছে। অনুগ্রহ করে ১ মিনিট পর চেষ্টা করুন।", body.Error.Message)
	assert.Equal(t, "rate_limit", body.Error.Details["kind"])
	assert.Equal(t, true, body.Error.Details["retryable"])
	assert.Equal(t, ailink.CodeProviderRateLimit, body.Error.Details["reason"])
	assert.NotEmpty(t, body.Error.RequestID)
}

func TestRetryAfterDefaultsWithoutHint(t *testing.T) {
	envelope := WrapSearchError(context.Background(), &ailink.SearchError{Kind: ailink.ErrorKindRateLimit})
	assert.Equal(t, "60", retryAfterHeader(envelope))

	other := WrapSearchError(context.Background(), &ailink.SearchError{Kind: ailink.ErrorKindEmpty})
	assert.Empty(t, retryAfterHeader(other))
}

func TestSearchErrorBody(t *testing.T) {
	body := SearchErrorBody(context.Background(), &ailink.SearchError{Kind: ailink.ErrorKindEmpty})
	assert.Equal(t, CodeNoContentFound, body.Error.Code)
	assert.Equal(t, "empty", body.Error.Details["kind"])
	assert.Equal(t, false, body.Error.Details["retryable"])
}

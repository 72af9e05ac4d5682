package ailink

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

// ErrNotConfigured is wrapped by registry and service errors caused by
// missing or invalid provider configuration.
var ErrNotConfigured = errors.New("ailink not configured")

// DefaultRetryAfter is used when a rate-limited provider gives no hint.
const DefaultRetryAfter = 60 * time.Second

// classifyError maps any error from the provider boundary to a SearchError.
// Errors that are already classified pass through unchanged.
func classifyError(err error) *SearchError {
	if err == nil {
		return nil
	}

	var serr *SearchError
	if errors.As(err, &serr) && serr != nil {
		return serr
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &SearchError{Kind: ErrorKindCanceled, Code: CodeCanceled, Message: "search canceled"}
	case errors.Is(err, context.DeadlineExceeded):
		return &SearchError{Kind: ErrorKindTransport, Code: CodeProviderTimeout, Message: "provider request timed out"}
	case errors.Is(err, driver.ErrMissingAPIKey):
		return &SearchError{Kind: ErrorKindConfig, Code: CodeConfig, Message: "provider api key missing"}
	case errors.Is(err, ErrNotConfigured):
		return &SearchError{Kind: ErrorKindConfig, Code: CodeConfig, Message: "provider not configured", Details: err.Error()}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		return classifyProviderError(perr)
	}

	if errors.Is(err, driver.ErrDecode) {
		return &SearchError{Kind: ErrorKindTransport, Code: CodeDecode, Message: "provider response could not be decoded", Details: err.Error()}
	}

	return &SearchError{Kind: ErrorKindUnknown, Code: CodeProviderError, Message: "provider request failed", Details: err.Error()}
}

func classifyProviderError(perr *driver.ProviderError) *SearchError {
	status := perr.StatusCode
	details := strings.TrimSpace(perr.Message)

	if status == 429 || isQuotaError(perr) {
		retryAfter := perr.RetryAfter
		if retryAfter <= 0 {
			retryAfter = DefaultRetryAfter
		}
		return &SearchError{
			Kind:       ErrorKindRateLimit,
			Code:       CodeProviderRateLimit,
			Message:    "provider rate limited",
			Details:    details,
			RetryAfter: retryAfter,
		}
	}

	switch {
	case status == 401 || status == 403:
		return &SearchError{Kind: ErrorKindConfig, Code: CodeProviderAuth, Message: "provider authentication failed", Details: details}
	case status == 404:
		return &SearchError{Kind: ErrorKindConfig, Code: CodeProviderNotFound, Message: "provider model or endpoint not found", Details: details}
	case status >= 500 && status <= 599:
		return &SearchError{Kind: ErrorKindTransport, Code: CodeProviderUnavailable, Message: "provider unavailable", Details: details}
	case status >= 400 && status <= 499:
		return &SearchError{Kind: ErrorKindTransport, Code: CodeProviderBadRequest, Message: "provider rejected request", Details: details}
	default:
		return &SearchError{Kind: ErrorKindUnknown, Code: CodeProviderError, Message: "provider request failed", Details: details}
	}
}

func isQuotaError(perr *driver.ProviderError) bool {
	if strings.EqualFold(strings.TrimSpace(perr.Status), "RESOURCE_EXHAUSTED") {
		return true
	}
	msg := strings.ToLower(perr.Message)
	return strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "quota")
}

func emptyResultError() *SearchError {
	return &SearchError{Kind: ErrorKindEmpty, Code: CodeEmpty, Message: "provider returned no text"}
}

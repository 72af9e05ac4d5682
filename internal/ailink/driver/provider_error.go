package driver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingAPIKey is returned when a driver has no credential.
	ErrMissingAPIKey = errors.New("api key is required")

	// ErrDecode wraps failures to parse a provider payload.
	ErrDecode = errors.New("decode provider response")
)

// ProviderError is returned when a provider responds with a non-2xx status
// or reports an error inside a stream.
//
// Drivers should populate RawResponse with the provider response body bytes.
// RawResponse must never include API keys.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Status      string
	Message     string
	RetryAfter  time.Duration
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

// NewHTTPError builds a ProviderError from a non-2xx response.
func NewHTTPError(provider string, resp *http.Response, body []byte) *ProviderError {
	perr := &ProviderError{
		Provider:    provider,
		Message:     strings.TrimSpace(string(body)),
		RawResponse: body,
	}
	if resp != nil {
		perr.StatusCode = resp.StatusCode
		perr.RetryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	return perr
}

// ParseRetryAfter accepts delta-seconds or an HTTP date. Unparseable or
// past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

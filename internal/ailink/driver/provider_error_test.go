package driver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 26, 12, 0, 0, 0, time.UTC)

	require.Equal(t, 30*time.Second, ParseRetryAfter("30", now))
	require.Equal(t, time.Duration(0), ParseRetryAfter("-1", now))
	require.Equal(t, time.Duration(0), ParseRetryAfter("soon", now))
	require.Equal(t, 90*time.Second, ParseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	require.Equal(t, time.Duration(0), ParseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
}

func TestNewHTTPError(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set("Retry-After", "12")

	perr := NewHTTPError("gemini", resp, []byte(" quota \n"))
	require.Equal(t, 429, perr.StatusCode)
	require.Equal(t, "quota", perr.Message)
	require.Equal(t, 12*time.Second, perr.RetryAfter)
	require.Equal(t, "gemini request failed: status 429: quota", perr.Error())
}

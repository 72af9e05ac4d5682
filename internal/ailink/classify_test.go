package ailink

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

func TestClassifyProviderStatusCodes(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		wantCode   string
		wantKind   ErrorKind
	}{
		{"auth", 401, CodeProviderAuth, ErrorKindConfig},
		{"forbidden", 403, CodeProviderAuth, ErrorKindConfig},
		{"not found", 404, CodeProviderNotFound, ErrorKindConfig},
		{"rate", 429, CodeProviderRateLimit, ErrorKindRateLimit},
		{"bad", 400, CodeProviderBadRequest, ErrorKindTransport},
		{"unavail", 503, CodeProviderUnavailable, ErrorKindTransport},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := &driver.ProviderError{Provider: "gemini", StatusCode: tc.statusCode, Message: "boom"}
			mapped := classifyError(err)
			require.NotNil(t, mapped)
			assert.Equal(t, tc.wantCode, mapped.Code)
			assert.Equal(t, tc.wantKind, mapped.Kind)
			assert.Equal(t, "boom", mapped.Details)
		})
	}
}

func TestClassifyRateLimitRetryAfter(t *testing.T) {
	mapped := classifyError(&driver.ProviderError{StatusCode: 429})
	assert.Equal(t, DefaultRetryAfter, mapped.RetryAfter)

	mapped = classifyError(&driver.ProviderError{StatusCode: 429, RetryAfter: 5 * time.Second})
	assert.Equal(t, 5*time.Second, mapped.RetryAfter)
}

func TestClassifyQuotaInBody(t *testing.T) {
	mapped := classifyError(&driver.ProviderError{Status: "RESOURCE_EXHAUSTED", Message: "limit"})
	assert.Equal(t, ErrorKindRateLimit, mapped.Kind)

	mapped = classifyError(&driver.ProviderError{StatusCode: 400, Message: "You exceeded your current quota"})
	assert.Equal(t, ErrorKindRateLimit, mapped.Kind)
}

func TestClassifySentinels(t *testing.T) {
	assert.Equal(t, ErrorKindConfig, classifyError(fmt.Errorf("gemini: %w", driver.ErrMissingAPIKey)).Kind)
	assert.Equal(t, ErrorKindConfig, classifyError(fmt.Errorf("%w: no enabled providers", ErrNotConfigured)).Kind)
	assert.Equal(t, ErrorKindCanceled, classifyError(context.Canceled).Kind)

	timeout := classifyError(fmt.Errorf("read: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrorKindTransport, timeout.Kind)
	assert.Equal(t, CodeProviderTimeout, timeout.Code)

	decode := classifyError(fmt.Errorf("%w: bad json", driver.ErrDecode))
	assert.Equal(t, ErrorKindTransport, decode.Kind)
	assert.Equal(t, CodeDecode, decode.Code)
}

func TestClassifyUnknownKeepsMessage(t *testing.T) {
	mapped := classifyError(errors.New("socket closed"))
	assert.Equal(t, ErrorKindUnknown, mapped.Kind)
	assert.Equal(t, "socket closed", mapped.Details)
}

func TestClassifyPassesThroughSearchError(t *testing.T) {
	original := emptyResultError()
	assert.Same(t, original, classifyError(fmt.Errorf("wrapped: %w", original)))
}

func TestUserMessages(t *testing.T) {
	assert.Equal(t, "সার্ভার কনফিগারেশনে সমস্যা: API Key পাওয়া যায়নি। ডিপ্লয়মেন্ট সেটিংস চেক করুন।", UserMessage(ErrorKindConfig))
	assert.Equal(t, "সার্ভার কোটা শেষ হয়েছে। অনুগ্রহ করে ১ মিনিট পর চেষ্টা করুন।", UserMessage(ErrorKindRateLimit))
	assert.Equal(t, "সার্ভার থেকে কোনো তথ্য পাওয়া যায়নি। অনুগ্রহ করে অন্যভাবে প্রশ্ন করুন।", UserMessage(ErrorKindEmpty))
	assert.Equal(t, "সার্ভারে একটি সমস্যা হয়েছে। কিছুক্ষণ পর আবার চেষ্টা করুন।", UserMessage(ErrorKindTransport))
	assert.Equal(t, "তথ্য সংগ্রহে ত্রুটি হয়েছে। পুনরায় চেষ্টা করুন।", UserMessage(ErrorKindUnknown))
	assert.Empty(t, UserMessage(ErrorKindCanceled))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKindRateLimit, KindOf(&driver.ProviderError{StatusCode: 429}))
	assert.Equal(t, ErrorKindUnknown, KindOf(nil))
}

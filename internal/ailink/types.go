package ailink

import (
	"fmt"
	"time"
)

// GroundingSource is a deduplicated citation attached to an answer.
type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// SearchResult is the final answer for a query.
type SearchResult struct {
	Text     string            `json:"text"`
	Sources  []GroundingSource `json:"sources"`
	ImageURL string            `json:"imageUrl,omitempty"`
}

// Snapshot is one cumulative delivery while an answer streams in.
type Snapshot struct {
	Text    string            `json:"text"`
	Sources []GroundingSource `json:"sources"`
}

// ErrorKind groups failures by what the user can do about them.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindConfig
	ErrorKindRateLimit
	ErrorKindEmpty
	ErrorKindTransport
	// ErrorKindCanceled marks a superseded or aborted stream. It is never
	// shown to the user.
	ErrorKindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindConfig:
		return "config"
	case ErrorKindRateLimit:
		return "rate_limit"
	case ErrorKindEmpty:
		return "empty"
	case ErrorKindTransport:
		return "transport"
	case ErrorKindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Retryable reports whether a later identical request may succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindRateLimit, ErrorKindTransport, ErrorKindUnknown:
		return true
	default:
		return false
	}
}

// Error codes carried by SearchError.
const (
	CodeProviderAuth        = "AILINK_PROVIDER_AUTH"
	CodeProviderNotFound    = "AILINK_PROVIDER_NOT_FOUND"
	CodeConfig              = "AILINK_CONFIG"
	CodeProviderRateLimit   = "AILINK_PROVIDER_RATE_LIMIT"
	CodeProviderUnavailable = "AILINK_PROVIDER_UNAVAILABLE"
	CodeProviderBadRequest  = "AILINK_PROVIDER_BAD_REQUEST"
	CodeDecode              = "AILINK_DECODE"
	CodeProviderTimeout     = "AILINK_PROVIDER_TIMEOUT"
	CodeProviderError       = "AILINK_PROVIDER_ERROR"
	CodeEmpty               = "AILINK_EMPTY_RESPONSE"
	CodeCanceled            = "AILINK_CANCELED"
	CodeQueryRequired       = "AILINK_QUERY_REQUIRED"
)

// SearchError captures a classified ailink failure.
type SearchError struct {
	Kind       ErrorKind     `json:"-"`
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	Details    string        `json:"details,omitempty"`
	RetryAfter time.Duration `json:"-"`
}

func (e *SearchError) Error() string {
	if e == nil {
		return "search error"
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UserMessage returns the Bengali text shown for a failure of the given kind.
func UserMessage(kind ErrorKind) string {
	switch kind {
	case ErrorKindConfig:
		return "সার্ভার কনফিগারেশনে সমস্যা: API Key পাওয়া যায়নি। ডিপ্লয়মেন্ট সেটিংস চেক করুন।"
	case ErrorKindRateLimit:
		return "সার্ভার কোটা শেষ হয়েছে। অনুগ্রহ করে ১ মিনিট পর চেষ্টা করুন।"
	case ErrorKindEmpty:
		return "সার্ভার থেকে কোনো তথ্য পাওয়া যায়নি। অনুগ্রহ করে অন্যভাবে প্রশ্ন করুন।"
	case ErrorKindTransport:
		return "সার্ভারে একটি সমস্যা হয়েছে। কিছুক্ষণ পর আবার চেষ্টা করুন।"
	case ErrorKindCanceled:
		return ""
	default:
		return "তথ্য সংগ্রহে ত্রুটি হয়েছে। পুনরায় চেষ্টা করুন।"
	}
}

// KindOf returns the kind of a classified error, or ErrorKindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnknown
	}
	return classifyError(err).Kind
}

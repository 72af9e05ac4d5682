package errors

import (
	"context"
	stderrors "errors"
	"math"
	"strconv"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/deshgyan/deshgyan/internal/ailink"
)

// Search error codes
const (
	CodeRateLimited    = "RATE_LIMITED"
	CodeNoContentFound = "NO_CONTENT_FOUND"
	CodeConfigInvalid  = "CONFIG_INVALID"
	CodeExternal       = "EXTERNAL_SERVICE_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

// WrapSearchError converts a search failure into an envelope carrying the
// Bengali user message, the error kind and whether a retry may help.
func WrapSearchError(ctx context.Context, err error) *errors.ErrorEnvelope {
	kind := ailink.KindOf(err)

	var code string
	switch kind {
	case ailink.ErrorKindConfig:
		code = CodeConfigInvalid
	case ailink.ErrorKindRateLimit:
		code = CodeRateLimited
	case ailink.ErrorKindEmpty:
		code = CodeNoContentFound
	case ailink.ErrorKindTransport:
		code = CodeExternal
	default:
		code = CodeInternal
	}

	message := ailink.UserMessage(kind)
	if message == "" {
		message = ailink.UserMessage(ailink.ErrorKindUnknown)
	}

	details := map[string]interface{}{
		"kind":      kind.String(),
		"retryable": kind.Retryable(),
	}
	if serr := asSearchError(err); serr != nil {
		if serr.Code != "" {
			details["reason"] = serr.Code
		}
		if serr.RetryAfter > 0 {
			details["retry_after_seconds"] = int(math.Ceil(serr.RetryAfter.Seconds()))
		}
	}

	envelope := errors.NewErrorEnvelope(code, message)
	envelope = envelope.WithCorrelationID(extractCorrelationID(ctx))
	envelope = envelope.WithTraceID(extractTraceID(ctx))
	envelope = envelope.WithDetails(details)
	if kind == ailink.ErrorKindUnknown || kind == ailink.ErrorKindConfig {
		envelope, _ = envelope.WithSeverity(errors.SeverityHigh)
	} else {
		envelope, _ = envelope.WithSeverity(errors.SeverityMedium)
	}
	return envelope
}

func asSearchError(err error) *ailink.SearchError {
	var serr *ailink.SearchError
	if stderrors.As(err, &serr) {
		return serr
	}
	return nil
}

// retryAfterHeader returns the Retry-After value for a rate limited
// envelope, or "".
func retryAfterHeader(envelope *errors.ErrorEnvelope) string {
	if envelope == nil || envelope.Code != CodeRateLimited {
		return ""
	}
	switch v := envelope.Details["retry_after_seconds"].(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.Itoa(int(math.Ceil(v)))
	}
	return strconv.Itoa(int(ailink.DefaultRetryAfter.Seconds()))
}

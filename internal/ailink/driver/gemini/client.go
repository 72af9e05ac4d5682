// Package gemini implements the Google Generative Language API driver with
// Google Search grounding.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	maxErrorBody   = 64 * 1024
)

// Client implements the Gemini driver via direct HTTP.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}
	return &Client{BaseURL: u, APIKey: strings.TrimSpace(apiKey)}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "gemini"
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsTools:     true,
		SupportsStreaming: true,
		SupportsWebSearch: true,
	}
}

// Complete calls generateContent and returns the full answer.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	payload, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	start := time.Now()
	endpoint := c.endpoint(req.Model, "generateContent", false)
	resp, body, err := c.post(ctx, endpoint, payload)
	if err != nil {
		c.trace(endpoint, req.Model, body, 0, nil, err, start)
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.trace(endpoint, req.Model, body, resp.StatusCode, respBody, nil, start)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, providerError(resp, respBody)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", driver.ErrDecode, err)
	}
	if parsed.Error != nil {
		return nil, parsed.Error.toProviderError(respBody)
	}
	return parsed.toDriverResponse(), nil
}

// Stream calls streamGenerateContent with server-sent events.
func (c *Client) Stream(ctx context.Context, req *driver.Request) (driver.EventStream, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	payload, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	release := func() {
		if cancel != nil {
			cancel()
		}
	}

	start := time.Now()
	endpoint := c.endpoint(req.Model, "streamGenerateContent", true)
	resp, body, err := c.post(ctx, endpoint, payload)
	if err != nil {
		c.trace(endpoint, req.Model, body, 0, nil, err, start)
		release()
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		release()
		c.trace(endpoint, req.Model, body, resp.StatusCode, respBody, nil, start)
		return nil, providerError(resp, respBody)
	}

	trace := driver.StartStreamTrace(driver.TraceEntry{
		Driver:      c.Name(),
		Endpoint:    endpoint,
		Method:      http.MethodPost,
		Model:       req.Model,
		RequestBody: body,
		StatusCode:  resp.StatusCode,
	})
	return newStream(resp.Body, release, trace), nil
}

func (c *Client) validate() error {
	if c == nil {
		return fmt.Errorf("gemini client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return driver.ErrMissingAPIKey
	}
	return nil
}

func (c *Client) endpoint(model, method string, sse bool) string {
	u := strings.TrimRight(c.BaseURL, "/") + "/models/" + url.PathEscape(strings.TrimPrefix(model, "models/")) + ":" + method
	if sse {
		u += "?alt=sse"
	}
	return u
}

func (c *Client) post(ctx context.Context, endpoint string, payload *generateRequest) (*http.Response, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, body, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, body, fmt.Errorf("request failed: %w", err)
	}
	return resp, body, nil
}

func (c *Client) trace(endpoint, model string, reqBody []byte, status int, respBody []byte, err error, start time.Time) {
	entry := driver.TraceEntry{
		Driver:      c.Name(),
		Endpoint:    endpoint,
		Method:      http.MethodPost,
		Model:       model,
		RequestBody: reqBody,
		StatusCode:  status,
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if json.Valid(respBody) {
		entry.Response = respBody
	}
	if err != nil {
		entry.Error = err.Error()
	}
	driver.Trace(entry)
}

// providerError prefers the structured {"error":{...}} body when present.
func providerError(resp *http.Response, body []byte) error {
	perr := driver.NewHTTPError("gemini", resp, body)

	var envelope struct {
		Error *apiError `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		if envelope.Error.Message != "" {
			perr.Message = envelope.Error.Message
		}
		perr.Status = envelope.Error.Status
	}
	return perr
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

const defaultBaseURL = "https://api.openai.com/v1"

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 * 1024

// Client implements the OpenAI chat completions wire format via direct HTTP.
//
// The same client serves OpenAI-compatible providers such as xAI; Provider
// names the instance in errors and traces and LiveSearch switches on the
// search_parameters extension those providers use for web grounding.
type Client struct {
	Provider   string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration

	LiveSearch bool
	ImageModel string
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}

	return &Client{
		Provider:   "openai",
		BaseURL:    url,
		APIKey:     strings.TrimSpace(apiKey),
		ImageModel: "dall-e-3",
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	if c == nil || c.Provider == "" {
		return "openai"
	}
	return c.Provider
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsTools:     true,
		SupportsImages:    true,
		SupportsStreaming: true,
		SupportsWebSearch: c != nil && c.LiveSearch,
	}
}

// Complete sends a chat completion request and waits for the full answer.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	payload, err := c.buildChatRequest(req, false)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	start := time.Now()
	resp, body, url, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		c.trace(url, payload.Model, body, 0, nil, err, start)
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.trace(url, payload.Model, body, resp.StatusCode, respBody, nil, start)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, driver.NewHTTPError(c.Name(), resp, respBody)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", driver.ErrDecode, err)
	}

	return toDriverResponse(&parsed)
}

// Stream sends a streaming chat completion request.
func (c *Client) Stream(ctx context.Context, req *driver.Request) (driver.EventStream, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	payload, err := c.buildChatRequest(req, true)
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
	resp, body, url, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		c.trace(url, payload.Model, body, 0, nil, err, start)
		release()
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		release()
		c.trace(url, payload.Model, body, resp.StatusCode, respBody, nil, start)
		return nil, driver.NewHTTPError(c.Name(), resp, respBody)
	}

	trace := driver.StartStreamTrace(driver.TraceEntry{
		Driver:      c.Name(),
		Endpoint:    url,
		Method:      http.MethodPost,
		Model:       payload.Model,
		RequestBody: body,
		StatusCode:  resp.StatusCode,
	})

	return newChatStream(c.Name(), resp.Body, release, trace), nil
}

func (c *Client) validate() error {
	if c == nil {
		return fmt.Errorf("openai client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return driver.ErrMissingAPIKey
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, []byte, string, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, url, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, body, url, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, body, url, fmt.Errorf("request failed: %w", err)
	}
	return resp, body, url, nil
}

func (c *Client) trace(url, model string, reqBody []byte, status int, respBody []byte, err error, start time.Time) {
	entry := driver.TraceEntry{
		Driver:      c.Name(),
		Endpoint:    url,
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

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}

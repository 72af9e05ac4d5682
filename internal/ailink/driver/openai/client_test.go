package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/ailink/content"
	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

func userRequest(model string) *driver.Request {
	return &driver.Request{Model: model, Messages: []content.Message{content.TextMessage(content.RoleUser, "hi")}}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), userRequest("test"))
	require.ErrorIs(t, err, driver.ErrMissingAPIKey)

	_, err = client.Stream(context.Background(), userRequest("test"))
	require.ErrorIs(t, err, driver.ErrMissingAPIKey)
}

func TestClientRejectsSearchParametersWithoutLiveSearch(t *testing.T) {
	client := NewClient("", "test-key")
	req := userRequest("test")
	req.SearchParameters = &driver.SearchParameters{Mode: "auto"}

	_, err := client.Complete(context.Background(), req)
	require.Error(t, err)
	require.Contains(t, err.Error(), "search_parameters")
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		_, hasSearchParams := payload["search_parameters"]
		require.False(t, hasSearchParams)
		_, hasStream := payload["stream"]
		require.False(t, hasStream)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"# ঢাকা"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	req := userRequest("test-model")
	req.Messages = append([]content.Message{content.TextMessage(content.RoleSystem, "sys")}, req.Messages...)
	resp, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 3, resp.Usage.TotalTokens)
	require.Len(t, resp.Content, 1)
	require.Equal(t, "# ঢাকা", resp.Content[0].Text)
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), userRequest("test"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 429")
	require.Contains(t, err.Error(), "nope")

	_, err = client.Stream(context.Background(), userRequest("test"))
	var perr *driver.ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, 429, perr.StatusCode)
	require.Equal(t, 7*time.Second, perr.RetryAfter)
}

func TestClientStreamsDeltasAndCitations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, true, payload["stream"])

		params, ok := payload["search_parameters"].(map[string]any)
		require.True(t, ok, "live search should send search_parameters")
		require.Equal(t, "auto", params["mode"])
		require.Equal(t, true, params["return_citations"])

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"# পদ্মা\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\" সেতু\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}],\"citations\":[\"https://www.example.com/a\"]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()
	client.LiveSearch = true

	req := userRequest("grok")
	req.Tools = []driver.Tool{{Type: driver.ToolWebSearch}}

	stream, err := client.Stream(context.Background(), req)
	require.NoError(t, err)
	defer stream.Close() // nolint:errcheck

	ev, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "# পদ্মা", ev.Text)

	ev, err = stream.Recv()
	require.NoError(t, err)
	require.Equal(t, " সেতু", ev.Text)

	ev, err = stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "stop", ev.FinishReason)
	require.Equal(t, []driver.Citation{{Title: "example.com", URI: "https://www.example.com/a"}}, ev.Citations)

	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, stream.Close())
}

func TestClientStreamMalformedChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "data: {not json}\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	stream, err := client.Stream(context.Background(), userRequest("m"))
	require.NoError(t, err)
	defer stream.Close() // nolint:errcheck

	_, err = stream.Recv()
	require.ErrorIs(t, err, driver.ErrDecode)
}

func TestClientStreamInBandError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "data: {\"error\":{\"message\":\"overloaded\",\"type\":\"server_error\"}}\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	stream, err := client.Stream(context.Background(), userRequest("m"))
	require.NoError(t, err)
	defer stream.Close() // nolint:errcheck

	_, err = stream.Recv()
	var perr *driver.ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "overloaded", perr.Message)
}

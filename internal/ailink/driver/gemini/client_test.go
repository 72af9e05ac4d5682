package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/ailink/content"
	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

func encyclopediaRequest() *driver.Request {
	temp := 0.3
	return &driver.Request{
		Model: "gemini-3-flash-preview",
		Messages: []content.Message{
			content.TextMessage(content.RoleSystem, "আপনি একজন ইতিহাসবিদ"),
			content.TextMessage(content.RoleUser, "বাংলাদেশ সম্পর্কে বিস্তারিত তথ্য দাও: সুন্দরবন"),
		},
		Tools:       []driver.Tool{{Type: driver.ToolWebSearch}},
		Temperature: &temp,
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("", "").Stream(context.Background(), encyclopediaRequest())
	require.ErrorIs(t, err, driver.ErrMissingAPIKey)
}

func TestBuildRequest(t *testing.T) {
	payload, err := buildRequest(encyclopediaRequest())
	require.NoError(t, err)

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	sys := decoded["systemInstruction"].(map[string]any)
	require.Equal(t, "আপনি একজন ইতিহাসবিদ", sys["parts"].([]any)[0].(map[string]any)["text"])

	contents := decoded["contents"].([]any)
	require.Len(t, contents, 1)
	require.Equal(t, "user", contents[0].(map[string]any)["role"])

	tools := decoded["tools"].([]any)
	require.Len(t, tools, 1)
	_, hasSearch := tools[0].(map[string]any)["google_search"]
	require.True(t, hasSearch)

	cfg := decoded["generationConfig"].(map[string]any)
	require.Equal(t, 0.3, cfg["temperature"])
}

func TestBuildRequestNeedsUserMessage(t *testing.T) {
	_, err := buildRequest(&driver.Request{Model: "m", Messages: []content.Message{content.TextMessage(content.RoleSystem, "s")}})
	require.Error(t, err)
}

func TestClientStreamsTextAndGrounding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/gemini-3-flash-preview:streamGenerateContent", r.URL.Path)
		require.Equal(t, "sse", r.URL.Query().Get("alt"))
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"text":"# সুন্দরবন"}]}}]}`+"\n\n")
		_, _ = io.WriteString(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"text":"\nবিশ্বের"},{"text":" বৃহত্তম"}]}}]}`+"\n\n")
		_, _ = io.WriteString(w, `data: {"candidates":[{"finishReason":"STOP","groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://bn.wikipedia.org/x","title":"উইকিপিডিয়া"}},{"retrievedContext":{}}]}}],"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":7,"totalTokenCount":12}}`+"\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	stream, err := client.Stream(context.Background(), encyclopediaRequest())
	require.NoError(t, err)
	defer stream.Close() // nolint:errcheck

	ev, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "# সুন্দরবন", ev.Text)

	ev, err = stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "\nবিশ্বের বৃহত্তম", ev.Text)

	ev, err = stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "", ev.Text)
	require.Equal(t, "STOP", ev.FinishReason)
	require.Equal(t, []driver.Citation{{Title: "উইকিপিডিয়া", URI: "https://bn.wikipedia.org/x"}}, ev.Citations)
	require.Equal(t, 12, ev.Usage.TotalTokens)

	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestClientQuotaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Stream(context.Background(), encyclopediaRequest())
	var perr *driver.ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, 429, perr.StatusCode)
	require.Equal(t, "RESOURCE_EXHAUSTED", perr.Status)
	require.Equal(t, "Quota exceeded", perr.Message)
}

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/gemini-3-flash-preview:generateContent", r.URL.Path)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"উত্তর"}]},"finishReason":"STOP","groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://a.example","title":"A"}}]}}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), encyclopediaRequest())
	require.NoError(t, err)
	require.Equal(t, "উত্তর", resp.Content[0].Text)
	require.Equal(t, "STOP", resp.FinishReason)
	require.Len(t, resp.Citations, 1)
}

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

func TestClientGenerateImageDecodesBase64(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/images/generations", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "dall-e-3", payload["model"])
		require.Equal(t, "সুন্দরবন", payload["prompt"])
		require.Equal(t, "b64_json", payload["response_format"])
		require.Equal(t, "standard", payload["quality"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"aGVsbG8="}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.GenerateImage(context.Background(), &driver.ImageRequest{Prompt: "সুন্দরবন"})
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), resp.Data)
	require.Equal(t, "image/png", resp.MimeType)
}

func TestClientGenerateImageDataURLAndHostedURL(t *testing.T) {
	responses := []string{
		`{"data":[{"b64_json":"data:image/jpeg;base64,aGVsbG8="}]}`,
		`{"data":[{"url":"https://img.example/x.png"}]}`,
	}
	call := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "grok-2-image", payload["model"])
		_, hasSize := payload["size"]
		require.False(t, hasSize)

		_, _ = w.Write([]byte(responses[call]))
		call++
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()
	client.ImageModel = "grok-2-image"

	resp, err := client.GenerateImage(context.Background(), &driver.ImageRequest{Prompt: "p", Size: "1024x1024"})
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", resp.MimeType)
	require.Equal(t, []byte("hello"), resp.Data)

	resp, err = client.GenerateImage(context.Background(), &driver.ImageRequest{Prompt: "p"})
	require.NoError(t, err)
	require.Equal(t, "https://img.example/x.png", resp.URL)
}

func TestClientGenerateImageRequiresPrompt(t *testing.T) {
	client := NewClient("", "test-key")
	_, err := client.GenerateImage(context.Background(), &driver.ImageRequest{})
	require.Error(t, err)
}

// Package xai configures the OpenAI-compatible driver for x.ai, whose chat
// endpoint adds live web search through search_parameters.
package xai

import (
	"strings"

	"github.com/deshgyan/deshgyan/internal/ailink/driver/openai"
)

const (
	defaultBaseURL    = "https://api.x.ai/v1"
	defaultImageModel = "grok-2-image"
)

// NewClient returns an xAI client with live search enabled.
func NewClient(baseURL, apiKey string) *openai.Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}

	client := openai.NewClient(url, apiKey)
	client.Provider = "xai"
	client.LiveSearch = true
	client.ImageModel = defaultImageModel
	return client
}

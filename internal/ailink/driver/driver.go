package driver

import (
	"context"

	"github.com/deshgyan/deshgyan/internal/ailink/content"
)

// Driver defines the interface for AI completion providers.
type Driver interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Stream sends a completion request and returns incremental events.
	Stream(ctx context.Context, req *Request) (EventStream, error)
	// Name returns the driver identifier (e.g., "gemini").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// ImageGenerator is implemented by drivers that can render illustrations.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error)
}

// EventStream yields provider events in transport order. Recv returns
// io.EOF after the final event. Close is safe to call more than once.
type EventStream interface {
	Recv() (*StreamEvent, error)
	Close() error
}

// StreamEvent is one decoded increment of a streamed response. Text holds
// only the new text, never the accumulated answer.
type StreamEvent struct {
	Text         string
	Citations    []Citation
	FinishReason string
	Usage        *Usage
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsTools     bool
	SupportsImages    bool
	SupportsStreaming bool
	SupportsWebSearch bool
	SupportedModels   []string
}

// Tool represents a server-side tool.
type Tool struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// ToolWebSearch asks the provider to ground the answer with web results.
const ToolWebSearch = "web_search"

// ResponseFormat specifies the expected response format.
type ResponseFormat struct {
	Type string `json:"type"` // "text", "json_object"
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// SearchParameters enables live web search on providers that configure it
// per request rather than as a tool.
type SearchParameters struct {
	Mode            string   `json:"mode,omitempty"`
	ReturnCitations bool     `json:"return_citations,omitempty"`
	Sources         []Source `json:"sources,omitempty"`
}

// Source for search_parameters.sources.
type Source struct {
	Type string `json:"type"`
}

// Citation is a web page the provider used to ground its answer.
type Citation struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model            string
	Messages         []content.Message
	Tools            []Tool
	SearchParameters *SearchParameters
	ResponseFormat   *ResponseFormat
	Temperature      *float64
	MaxTokens        *int
	PromptSlug       string
	Metadata         map[string]string
}

// WantsWebSearch reports whether the request asks for web grounding.
func (r *Request) WantsWebSearch() bool {
	if r == nil {
		return false
	}
	if r.SearchParameters != nil && r.SearchParameters.Mode != "" && r.SearchParameters.Mode != "off" {
		return true
	}
	for _, tool := range r.Tools {
		if tool.Type == ToolWebSearch {
			return true
		}
	}
	return false
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content      []content.ContentBlock
	Citations    []Citation
	FinishReason string
	Usage        *Usage
}

// ImageRequest asks an image-capable provider for a single illustration.
type ImageRequest struct {
	Model  string
	Prompt string
	Size   string
}

// ImageResponse carries either a hosted URL or inline image bytes.
type ImageResponse struct {
	URL           string
	Data          []byte
	MimeType      string
	RevisedPrompt string
}

package openai

import (
	"fmt"
	"strings"

	"github.com/deshgyan/deshgyan/internal/ailink/content"
	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

type chatCompletionRequest struct {
	Model            string                   `json:"model"`
	Messages         []chatMessage            `json:"messages"`
	Tools            []map[string]any         `json:"tools,omitempty"`
	ResponseFormat   *responseFormat          `json:"response_format,omitempty"`
	Temperature      *float64                 `json:"temperature,omitempty"`
	MaxTokens        *int                     `json:"max_tokens,omitempty"`
	Stream           bool                     `json:"stream,omitempty"`
	StreamOptions    *streamOptions           `json:"stream_options,omitempty"`
	SearchParameters *driver.SearchParameters `json:"search_parameters,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (c *Client) buildChatRequest(req *driver.Request, stream bool) (*chatCompletionRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if req.SearchParameters != nil && !c.LiveSearch {
		// search_parameters are a provider extension; plain OpenAI rejects them.
		return nil, fmt.Errorf("search_parameters are not supported by %s driver", c.Name())
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	payload := &chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Tools:       flattenTools(req.Tools),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseFormat != nil {
		payload.ResponseFormat = &responseFormat{Type: req.ResponseFormat.Type}
	}
	if stream {
		payload.Stream = true
		payload.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	if c.LiveSearch && req.WantsWebSearch() {
		payload.SearchParameters = liveSearchParameters(req.SearchParameters)
	}

	return payload, nil
}

func liveSearchParameters(requested *driver.SearchParameters) *driver.SearchParameters {
	params := &driver.SearchParameters{
		Mode:            "auto",
		ReturnCitations: true,
		Sources:         []driver.Source{{Type: "web"}},
	}
	if requested == nil {
		return params
	}
	if requested.Mode != "" {
		params.Mode = requested.Mode
	}
	if len(requested.Sources) > 0 {
		params.Sources = requested.Sources
	}
	return params
}

func convertMessages(messages []content.Message) ([]chatMessage, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}
	result := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		contentValue, err := convertContent(msg.Content)
		if err != nil {
			return nil, err
		}
		result = append(result, chatMessage{Role: msg.Role, Content: contentValue})
	}
	return result, nil
}

// flattenTools drops web_search, which is expressed through
// search_parameters on this wire format.
func flattenTools(tools []driver.Tool) []map[string]any {
	var result []map[string]any
	for _, t := range tools {
		if t.Type == driver.ToolWebSearch {
			continue
		}
		flat := map[string]any{"type": t.Type}
		for k, v := range t.Config {
			flat[k] = v
		}
		result = append(result, flat)
	}
	return result
}

func convertContent(blocks []content.ContentBlock) (interface{}, error) {
	if len(blocks) == 0 {
		return "", nil
	}
	if len(blocks) == 1 && blocks[0].Type == content.ContentTypeText {
		return blocks[0].Text, nil
	}

	converted := make([]contentBlock, 0, len(blocks))
	for _, block := range blocks {
		switch block.Type {
		case content.ContentTypeText, content.ContentTypeMarkdown:
			converted = append(converted, contentBlock{Type: "text", Text: block.Text})
		default:
			return nil, fmt.Errorf("unsupported content type: %s", block.Type)
		}
	}
	return converted, nil
}

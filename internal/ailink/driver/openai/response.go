package openai

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/deshgyan/deshgyan/internal/ailink/content"
	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

type chatCompletionResponse struct {
	Choices   []choice `json:"choices"`
	Citations []string `json:"citations,omitempty"`
	Usage     *usage   `json:"usage,omitempty"`
}

type choice struct {
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Content string `json:"content"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatCompletionChunk is one server-sent event of a streamed completion.
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Citations []string     `json:"citations,omitempty"`
	Usage     *usage       `json:"usage,omitempty"`
	Error     *streamError `json:"error,omitempty"`
}

type streamError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func toDriverResponse(resp *chatCompletionResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response choices", driver.ErrDecode)
	}

	choice := resp.Choices[0]
	contentBlock := content.ContentBlock{Type: content.ContentTypeText, Text: choice.Message.Content}
	response := &driver.Response{
		Content:      []content.ContentBlock{contentBlock},
		Citations:    toCitations(resp.Citations),
		FinishReason: choice.FinishReason,
		Usage:        resp.Usage.toDriver(),
	}
	return response, nil
}

func (u *usage) toDriver() *driver.Usage {
	if u == nil {
		return nil
	}
	return &driver.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// toCitations converts bare citation URLs. The host stands in for the
// title since the wire format carries none.
func toCitations(urls []string) []driver.Citation {
	if len(urls) == 0 {
		return nil
	}
	out := make([]driver.Citation, 0, len(urls))
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		title := raw
		if parsed, err := url.Parse(raw); err == nil && parsed.Host != "" {
			title = strings.TrimPrefix(parsed.Host, "www.")
		}
		out = append(out, driver.Citation{Title: title, URI: raw})
	}
	return out
}

package gemini

import (
	"strings"

	"github.com/deshgyan/deshgyan/internal/ailink/content"
	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

// generateResponse is both the unary response and each streamed chunk.
type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
	Error          *apiError       `json:"error,omitempty"`
}

type candidate struct {
	Content           *geminiContent     `json:"content,omitempty"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks,omitempty"`
}

type groundingChunk struct {
	Web *struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"web,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *apiError) toProviderError(raw []byte) *driver.ProviderError {
	return &driver.ProviderError{
		Provider:    "gemini",
		StatusCode:  e.Code,
		Status:      e.Status,
		Message:     e.Message,
		RawResponse: raw,
	}
}

// text returns the text parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 1 {
		return parts[0].Text
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// citations returns the web grounding chunks of the first candidate.
func (r *generateResponse) citations() []driver.Citation {
	if len(r.Candidates) == 0 || r.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	chunks := r.Candidates[0].GroundingMetadata.GroundingChunks
	out := make([]driver.Citation, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Web == nil {
			continue
		}
		out = append(out, driver.Citation{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return out
}

func (r *generateResponse) finishReason() string {
	if len(r.Candidates) > 0 && r.Candidates[0].FinishReason != "" {
		return r.Candidates[0].FinishReason
	}
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return "BLOCKED_" + r.PromptFeedback.BlockReason
	}
	return ""
}

func (r *generateResponse) usage() *driver.Usage {
	if r.UsageMetadata == nil {
		return nil
	}
	return &driver.Usage{
		PromptTokens:     r.UsageMetadata.PromptTokenCount,
		CompletionTokens: r.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      r.UsageMetadata.TotalTokenCount,
	}
}

func (r *generateResponse) toDriverResponse() *driver.Response {
	return &driver.Response{
		Content:      []content.ContentBlock{{Type: content.ContentTypeText, Text: r.text()}},
		Citations:    r.citations(),
		FinishReason: r.finishReason(),
		Usage:        r.usage(),
	}
}

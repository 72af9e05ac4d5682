package gemini

import (
	"fmt"
	"strings"

	"github.com/deshgyan/deshgyan/internal/ailink/content"
	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

type generateRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTool    `json:"tools,omitempty"`
	GenerationConfig  *generationConf `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generationConf struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

func buildRequest(req *driver.Request) (*generateRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	payload := &generateRequest{}
	var system []string
	for _, msg := range req.Messages {
		text := msg.Text()
		switch msg.Role {
		case content.RoleSystem:
			if text != "" {
				system = append(system, text)
			}
		case content.RoleAssistant:
			payload.Contents = append(payload.Contents, geminiContent{Role: "model", Parts: []part{{Text: text}}})
		default:
			payload.Contents = append(payload.Contents, geminiContent{Role: "user", Parts: []part{{Text: text}}})
		}
	}
	if len(payload.Contents) == 0 {
		return nil, fmt.Errorf("at least one user message is required")
	}
	if len(system) > 0 {
		payload.SystemInstruction = &geminiContent{Parts: []part{{Text: strings.Join(system, "\n\n")}}}
	}

	if req.WantsWebSearch() {
		payload.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}

	if req.Temperature != nil || req.MaxTokens != nil || req.ResponseFormat != nil {
		payload.GenerationConfig = &generationConf{Temperature: req.Temperature, MaxOutputTokens: req.MaxTokens}
		// Grounding with search cannot be combined with JSON mode.
		if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" && len(payload.Tools) == 0 {
			payload.GenerationConfig.ResponseMimeType = "application/json"
		}
	}

	return payload, nil
}

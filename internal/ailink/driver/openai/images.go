package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/deshgyan/deshgyan/internal/ailink/driver"
	"github.com/deshgyan/deshgyan/internal/ailink/encode"
)

type imageGenerationRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageGenerationResponse struct {
	Created      int64  `json:"created"`
	OutputFormat string `json:"output_format,omitempty"`
	Data         []struct {
		B64JSON       string `json:"b64_json,omitempty"`
		URL           string `json:"url,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

// GenerateImage renders a single illustration for req.Prompt.
func (c *Client) GenerateImage(ctx context.Context, req *driver.ImageRequest) (*driver.ImageResponse, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	payload := imageGenerationRequest{
		Model:  strings.TrimSpace(req.Model),
		Prompt: req.Prompt,
		N:      1,
		Size:   strings.TrimSpace(req.Size),
	}
	if payload.Model == "" {
		payload.Model = c.ImageModel
	}

	// DALL·E and Grok image models need an explicit base64 response format;
	// GPT image models always return base64 and reject the field.
	if strings.HasPrefix(payload.Model, "dall-e") || strings.HasPrefix(payload.Model, "grok") {
		payload.ResponseFormat = "b64_json"
	}
	if strings.HasPrefix(payload.Model, "dall-e") {
		payload.Quality = "standard"
	}
	if strings.HasPrefix(payload.Model, "grok") {
		payload.Size = ""
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	resp, _, _, err := c.post(ctx, "/images/generations", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, driver.NewHTTPError(c.Name(), resp, respBody)
	}

	var parsed imageGenerationResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", driver.ErrDecode, err)
	}

	for _, item := range parsed.Data {
		if b64 := strings.TrimSpace(item.B64JSON); b64 != "" {
			mime := "image/png"
			if parsed.OutputFormat != "" {
				mime = "image/" + parsed.OutputFormat
			}
			// Some providers return a data URL instead of raw base64.
			if strings.HasPrefix(b64, "data:") {
				if idx := strings.Index(b64, ","); idx > 0 {
					if semi := strings.Index(b64, ";"); semi > len("data:") && semi < idx {
						mime = b64[len("data:"):semi]
					}
					b64 = b64[idx+1:]
				}
			}
			decoded, err := encode.DecodeBase64String(b64)
			if err != nil {
				return nil, fmt.Errorf("decode image base64: %w", err)
			}
			return &driver.ImageResponse{Data: decoded, MimeType: mime, RevisedPrompt: item.RevisedPrompt}, nil
		}
		if u := strings.TrimSpace(item.URL); u != "" {
			return &driver.ImageResponse{URL: u, RevisedPrompt: item.RevisedPrompt}, nil
		}
	}

	return nil, fmt.Errorf("%w: no image in response", driver.ErrDecode)
}

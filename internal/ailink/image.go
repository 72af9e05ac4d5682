package ailink

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/deshgyan/deshgyan/internal/ailink/driver"
	"github.com/deshgyan/deshgyan/internal/ailink/encode"
)

const illustrationPrompt = "An illustration for an encyclopedia article about Bangladesh: "

// attachImage asks the illustration provider for an image and sets
// result.ImageURL. Any failure leaves the result without an image.
func (s *Service) attachImage(ctx context.Context, query string, result *SearchResult) {
	if !s.Options.ImagesEnabled || result == nil {
		return
	}

	role := strings.TrimSpace(s.Options.ImageRole)
	if role == "" {
		role = DefaultImageRole
	}
	resolved, err := s.Providers.Resolve(role, nil, "", "")
	if err != nil {
		s.warn("illustration provider unavailable", zap.String("role", role), zap.Error(err))
		return
	}
	generator, ok := resolved.Driver.(driver.ImageGenerator)
	if !ok {
		s.warn("illustration provider cannot render images", zap.String("provider", resolved.ProviderID))
		return
	}

	resp, err := generator.GenerateImage(ctx, &driver.ImageRequest{
		Model:  strings.TrimSpace(resolved.Provider.Models["image"]),
		Prompt: illustrationPrompt + strings.TrimSpace(query),
	})
	if err != nil {
		s.warn("illustration failed", zap.String("provider", resolved.ProviderID), zap.Error(err))
		return
	}
	result.ImageURL = imageURL(resp)
}

func imageURL(resp *driver.ImageResponse) string {
	if resp == nil {
		return ""
	}
	if url := strings.TrimSpace(resp.URL); url != "" {
		return url
	}
	if len(resp.Data) == 0 {
		return ""
	}
	mime := strings.TrimSpace(resp.MimeType)
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + encode.EncodeBase64String(resp.Data)
}

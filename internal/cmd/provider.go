package cmd

import (
	"fmt"
	"strings"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/ailink/prompt"
	"github.com/deshgyan/deshgyan/internal/config"
)

// searchRoute is the provider a search would use right now.
type searchRoute struct {
	PromptSlug string
	Role       string
	Prompt     *prompt.Prompt
	Resolved   *ailink.ResolvedProvider
}

func searchPromptSlug(cfg *config.Config, override string) string {
	if slug := strings.TrimSpace(override); slug != "" {
		return slug
	}
	if slug := strings.TrimSpace(cfg.Search.PromptSlug); slug != "" {
		return slug
	}
	return ailink.DefaultPromptSlug
}

func searchRole(cfg *config.Config, slug, override string) string {
	if role := strings.TrimSpace(override); role != "" {
		return role
	}
	if role := strings.TrimSpace(cfg.Search.Role); role != "" {
		return role
	}
	return slug
}

// resolveSearchRoute loads the prompt registry and resolves the provider
// instance, credential and model for the configured search prompt.
func resolveSearchRoute(cfg *config.Config, slugOverride, roleOverride, modelOverride string) (*searchRoute, error) {
	slug := searchPromptSlug(cfg, slugOverride)
	role := searchRole(cfg, slug, roleOverride)

	registry, err := prompt.LoadRegistry(cfg.AILink.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("load prompt registry: %w", err)
	}
	promptDef, err := registry.Get(slug)
	if err != nil {
		return nil, fmt.Errorf("prompt not found: %w", err)
	}

	model := strings.TrimSpace(modelOverride)
	if model == "" {
		model = strings.TrimSpace(cfg.Search.Model)
	}
	resolved, err := ailink.NewRegistry(cfg.AILink).Resolve(role, promptDef, model, "")
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}

	return &searchRoute{PromptSlug: slug, Role: role, Prompt: promptDef, Resolved: resolved}, nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deshgyan/deshgyan/internal/ailink/prompt"
	"github.com/deshgyan/deshgyan/internal/config"
	"github.com/deshgyan/deshgyan/internal/observability"
)

var (
	doctorProviderRole  string
	doctorProviderModel string
)

var doctorProviderCmd = &cobra.Command{
	Use:   "provider [prompt-slug]",
	Short: "Show which provider answers queries",
	Long:  "Resolve the search prompt and role to a provider instance and show model and credential selection.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		slugOverride := ""
		if len(args) > 0 {
			slugOverride = args[0]
		}
		route, err := resolveSearchRoute(cfg, slugOverride, doctorProviderRole, doctorProviderModel)
		if err != nil {
			return err
		}

		resolved := route.Resolved
		providerCfg := resolved.Provider
		resolutionSource, routingTarget := describeAILinkResolution(cfg, route.Role)

		observability.CLILogger.Info("Provider Resolution")
		observability.CLILogger.Info(fmt.Sprintf("  Role:         %s", route.Role))
		observability.CLILogger.Info(fmt.Sprintf("  Prompt:       %s", route.PromptSlug))
		observability.CLILogger.Info(fmt.Sprintf("  Source:       %s", resolutionSource))
		if routingTarget != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Routing:      %s -> %s", route.Role, routingTarget))
		}
		observability.CLILogger.Info(fmt.Sprintf("  Provider ID:  %s", resolved.ProviderID))
		observability.CLILogger.Info(fmt.Sprintf("  ai_provider:  %s", providerCfg.AIProvider))
		observability.CLILogger.Info(fmt.Sprintf("  base_url:     %s", resolved.BaseURL))

		configuredModel := ""
		if providerCfg.Models != nil {
			configuredModel = strings.TrimSpace(providerCfg.Models["default"])
		}
		promptPreferred := firstPreferredModel(route.Prompt)

		modelSource := "unknown"
		switch {
		case strings.TrimSpace(doctorProviderModel) != "":
			modelSource = "cli_override"
		case strings.TrimSpace(cfg.Search.Model) != "":
			modelSource = "search.model"
		case promptPreferred != "":
			modelSource = "prompt_preferred_models"
		case configuredModel != "":
			modelSource = "provider.models.default"
		}

		observability.CLILogger.Info(fmt.Sprintf("  model:        %s", resolved.Model))
		observability.CLILogger.Info(fmt.Sprintf("  model_source: %s", modelSource))
		if modelSource == "prompt_preferred_models" && configuredModel != "" {
			observability.CLILogger.Info(fmt.Sprintf("  provider.models.default: %s", configuredModel))
		}
		observability.CLILogger.Info("")

		policy := strings.TrimSpace(providerCfg.SelectionPolicy)
		if policy == "" {
			policy = "priority"
		}
		observability.CLILogger.Info("Credential Selection")
		observability.CLILogger.Info(fmt.Sprintf("  selection_policy:   %s", policy))
		if strings.TrimSpace(providerCfg.DefaultCredential) != "" {
			observability.CLILogger.Info(fmt.Sprintf("  default_credential: %s", providerCfg.DefaultCredential))
		}
		observability.CLILogger.Info(fmt.Sprintf("  selected.label:     %s", resolved.Credential.Label))
		observability.CLILogger.Info(fmt.Sprintf("  selected.priority:  %d", resolved.Credential.Priority))
		if strings.TrimSpace(resolved.Credential.APIKey) != "" {
			observability.CLILogger.Info("  selected.api_key:   (set)")
		} else {
			observability.CLILogger.Info("  selected.api_key:   (not set)")
			observability.CLILogger.Warn("Selected credential has no API key", zap.String("provider", resolved.ProviderID))
		}

		return nil
	},
}

func describeAILinkResolution(cfg *config.Config, role string) (source string, routingTarget string) {
	if cfg == nil {
		return "config missing", ""
	}

	role = strings.TrimSpace(role)
	if role != "" && cfg.AILink.Routing != nil {
		routingTarget = strings.TrimSpace(cfg.AILink.Routing[role])
		if routingTarget != "" {
			return "routing", routingTarget
		}
	}

	for _, providerCfg := range cfg.AILink.Providers {
		if !providerCfg.Enabled {
			continue
		}
		for _, r := range providerCfg.Roles {
			if strings.EqualFold(strings.TrimSpace(r), role) {
				return "roles", ""
			}
		}
	}

	if strings.TrimSpace(cfg.AILink.DefaultProvider) != "" {
		return "default_provider", ""
	}

	enabledCount := 0
	for _, providerCfg := range cfg.AILink.Providers {
		if providerCfg.Enabled {
			enabledCount++
		}
	}
	if enabledCount == 1 {
		return "only_enabled_provider", ""
	}

	return "unknown", ""
}

func firstPreferredModel(promptDef *prompt.Prompt) string {
	if promptDef == nil {
		return ""
	}

	value, ok := promptDef.Config.ProviderHints["preferred_models"]
	if !ok || value == nil {
		return ""
	}

	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case []string:
		if len(typed) == 0 {
			return ""
		}
		return strings.TrimSpace(typed[0])
	case []any:
		for _, item := range typed {
			if s, ok := item.(string); ok {
				if candidate := strings.TrimSpace(s); candidate != "" {
					return candidate
				}
			}
		}
		return ""
	default:
		return ""
	}
}

func init() {
	doctorCmd.AddCommand(doctorProviderCmd)

	doctorProviderCmd.Flags().StringVar(&doctorProviderRole, "role", "", "Role to resolve (defaults to search.role, then the prompt slug)")
	doctorProviderCmd.Flags().StringVar(&doctorProviderModel, "model", "", "Model override (defaults to search.model, then prompt/provider config)")
}

package ailink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/ailink/driver/gemini"
	"github.com/deshgyan/deshgyan/internal/ailink/driver/openai"
	"github.com/deshgyan/deshgyan/internal/ailink/prompt"
)

func TestResolveModelPrefersProviderTierReasoningForDeep(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default", "reasoning": "m-reasoning"}}
	promptDef := &prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"preferred_models": []string{"prompt-model"}}}}

	model, err := resolveModel(providerCfg, promptDef, "", "deep")
	require.NoError(t, err)
	require.Equal(t, "m-reasoning", model)
}

func TestResolveModelFallsBackToDefaultWhenTierMissing(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default"}}

	model, err := resolveModel(providerCfg, nil, "", "deep")
	require.NoError(t, err)
	require.Equal(t, "m-default", model)
}

func TestResolveModelUsesFastTierForFastDepth(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default", "fast": "m-fast"}}

	model, err := resolveModel(providerCfg, nil, "", "fast")
	require.NoError(t, err)
	require.Equal(t, "m-fast", model)
}

func TestResolveModelUsesOverrideFirst(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default", "reasoning": "m-reasoning"}}

	model, err := resolveModel(providerCfg, nil, "override-model", "deep")
	require.NoError(t, err)
	require.Equal(t, "override-model", model)
}

func TestResolveModelFallsBackToPromptPreferredModels(t *testing.T) {
	providerCfg := ProviderInstanceConfig{}
	promptDef := &prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"preferred_models": []string{"prompt-model"}}}}

	model, err := resolveModel(providerCfg, promptDef, "", "")
	require.NoError(t, err)
	require.Equal(t, "prompt-model", model)
}

func TestRegistryResolvesGeminiByDefault(t *testing.T) {
	reg := NewRegistry(Config{
		DefaultProvider: "deshgyan-gemini",
		Providers: map[string]ProviderInstanceConfig{
			"deshgyan-gemini": {
				Enabled:     true,
				AIProvider:  "gemini",
				Models:      map[string]string{"default": "gemini-3-flash-preview"},
				Credentials: []CredentialConfig{{Enabled: true, APIKey: "k"}},
			},
		},
	})

	resolved, err := reg.Resolve("encyclopedia", nil, "", "")
	require.NoError(t, err)
	require.Equal(t, "deshgyan-gemini", resolved.ProviderID)
	require.Equal(t, "gemini-3-flash-preview", resolved.Model)
	require.IsType(t, &gemini.Client{}, resolved.Driver)
	require.Equal(t, "https://generativelanguage.googleapis.com/v1beta", resolved.BaseURL)

	again, err := reg.Resolve("encyclopedia", nil, "", "")
	require.NoError(t, err)
	require.Same(t, resolved.Driver, again.Driver)
}

func TestRegistryRoutesRoleToXAI(t *testing.T) {
	reg := NewRegistry(Config{
		DefaultProvider: "g",
		Providers: map[string]ProviderInstanceConfig{
			"g": {Enabled: true, AIProvider: "gemini", Models: map[string]string{"default": "gm"}, Credentials: []CredentialConfig{{APIKey: "k"}}},
			"x": {Enabled: true, AIProvider: "xai", Models: map[string]string{"default": "grok", "image": "grok-img"}, Credentials: []CredentialConfig{{APIKey: "k"}}},
		},
		Routing: map[string]string{"illustration": "x"},
	})

	resolved, err := reg.Resolve("illustration", nil, "", "")
	require.NoError(t, err)
	client, ok := resolved.Driver.(*openai.Client)
	require.True(t, ok)
	assert.Equal(t, "xai", client.Name())
	assert.Equal(t, "grok-img", client.ImageModel)
	assert.Equal(t, "https://api.x.ai/v1", resolved.BaseURL)
}

func TestRegistryConfigErrorsAreClassified(t *testing.T) {
	cases := map[string]Config{
		"no providers": {},
		"disabled default": {
			DefaultProvider: "g",
			Providers:       map[string]ProviderInstanceConfig{"g": {AIProvider: "gemini"}},
		},
		"unknown driver": {
			DefaultProvider: "g",
			Providers: map[string]ProviderInstanceConfig{
				"g": {Enabled: true, AIProvider: "anthropic", Credentials: []CredentialConfig{{APIKey: "k"}}},
			},
		},
		"no credentials": {
			DefaultProvider: "g",
			Providers:       map[string]ProviderInstanceConfig{"g": {Enabled: true, AIProvider: "gemini"}},
		},
	}

	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(cfg).Resolve("encyclopedia", nil, "m", "")
			require.Error(t, err)
			assert.Equal(t, ErrorKindConfig, KindOf(err))
		})
	}
}

func TestSelectCredentialRoundRobin(t *testing.T) {
	cfg := ProviderInstanceConfig{
		SelectionPolicy: "round_robin",
		Credentials: []CredentialConfig{
			{Enabled: true, Label: "a", APIKey: "ka", Priority: 1},
			{Enabled: true, Label: "b", APIKey: "kb", Priority: 1},
			{Enabled: true, Label: "low", APIKey: "kl", Priority: 0},
		},
	}
	reg := NewRegistry(Config{})
	next := func(groupKey string, n int) int { return reg.rrIndex("p:"+groupKey, n) }

	first, _, err := selectCredential(cfg, next)
	require.NoError(t, err)
	second, _, err := selectCredential(cfg, next)
	require.NoError(t, err)
	third, _, err := selectCredential(cfg, next)
	require.NoError(t, err)

	assert.Equal(t, "a", first.Label)
	assert.Equal(t, "b", second.Label)
	assert.Equal(t, "a", third.Label)
}

func TestSelectCredentialDefaultLabel(t *testing.T) {
	cfg := ProviderInstanceConfig{
		DefaultCredential: "backup",
		Credentials: []CredentialConfig{
			{Enabled: true, Label: "main", APIKey: "k1", Priority: 5},
			{Enabled: true, Label: "backup", APIKey: "k2"},
		},
	}
	cred, key, err := selectCredential(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "backup", cred.Label)
	assert.Equal(t, "backup", key)
}

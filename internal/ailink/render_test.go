package ailink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/ailink/prompt"
)

func TestRenderPromptSubstitutesQuery(t *testing.T) {
	def := &prompt.Prompt{Config: prompt.Config{
		SystemTemplate: "sys",
		UserTemplate:   "বাংলাদেশ সম্পর্কে বিস্তারিত তথ্য দাও: {{query}}",
	}}

	system, user, err := renderPrompt(def, map[string]string{"query": "সুন্দরবন"})
	require.NoError(t, err)
	assert.Equal(t, "sys", system)
	assert.Equal(t, "বাংলাদেশ সম্পর্কে বিস্তারিত তথ্য দাও: সুন্দরবন", user)
}

func TestRenderPromptDefaultsUserTemplate(t *testing.T) {
	def := &prompt.Prompt{Config: prompt.Config{SystemTemplate: "sys"}}

	_, user, err := renderPrompt(def, map[string]string{"query": "q"})
	require.NoError(t, err)
	assert.Equal(t, "q", user)
}

func TestRenderPromptRequiresSystem(t *testing.T) {
	_, _, err := renderPrompt(&prompt.Prompt{}, nil)
	require.Error(t, err)

	_, _, err = renderPrompt(nil, nil)
	require.Error(t, err)
}

func TestApplyConditionals(t *testing.T) {
	tpl := "A{{#if era}} era={{era}}{{else}} no era{{/if}}B"

	assert.Equal(t, "A era={{era}}B", applyConditionals(tpl, map[string]string{"era": "মুঘল"}))
	assert.Equal(t, "A no eraB", applyConditionals(tpl, map[string]string{}))

	nested := "{{#if a}}[{{#if b}}b{{/if}}]{{/if}}"
	assert.Equal(t, "[b]", applyConditionals(nested, map[string]string{"a": "1", "b": "1"}))
	assert.Equal(t, "[]", applyConditionals(nested, map[string]string{"a": "1"}))
}

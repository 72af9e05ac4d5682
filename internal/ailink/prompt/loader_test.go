package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	require.NotEmpty(t, prompts)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)

	prompt, err := reg.Get("encyclopedia")
	require.NoError(t, err)
	require.Contains(t, prompt.Config.SystemTemplate, "একনজরে মূল তথ্য")
	require.Equal(t, "বাংলাদেশ সম্পর্কে বিস্তারিত তথ্য দাও: {{query}}", prompt.Config.UserTemplate)
	require.Equal(t, 0.3, prompt.Config.ResponseOpts["temperature"])
	require.Len(t, prompt.Config.Tools, 1)
	require.Equal(t, "web_search", prompt.Config.Tools[0].Type)
}

func TestLoadBodyBecomesSystemTemplate(t *testing.T) {
	data := []byte("---\nslug: quick\nuser_template: \"{{query}}\"\n---\nAnswer briefly.\n")

	prompt, err := Load("quick.md", data)
	require.NoError(t, err)
	require.Equal(t, "Answer briefly.", prompt.Config.SystemTemplate)
	require.Equal(t, "quick.md", prompt.Source)
}

func TestLoadRejectsInvalidPrompts(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"no system":       "---\nslug: x\n---\n",
		"bad slug":        "---\nslug: Bad Slug\n---\nsys",
		"unknown tool":    "---\nslug: x\ntools:\n  - type: x_search\n---\nsys",
		"unused var":      "---\nslug: x\ninput:\n  required_variables: [query]\nuser_template: hi\n---\nsys",
		"bad temp":        "---\nslug: x\nresponse_options:\n  temperature: hot\n---\nsys",
		"bad frontmatter": "---\nslug: [\n---\nsys",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(name, []byte(data))
			require.Error(t, err)
		})
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\nslug: a\n---\nsys a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("---\nslug: b\n---\nsys b"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("nope"), 0o600))

	prompts, err := LoadFromDir(dir)
	require.NoError(t, err)
	require.Len(t, prompts, 2)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	a := &Prompt{Config: Config{Slug: "a"}}
	_, err := NewRegistry([]*Prompt{a, a})
	require.Error(t, err)

	reg, err := NewRegistry([]*Prompt{a, nil})
	require.NoError(t, err)
	require.Len(t, reg.List(), 1)

	_, err = reg.Get("missing")
	require.Error(t, err)
}

func TestMergeOverridesDefaults(t *testing.T) {
	base := []*Prompt{{Config: Config{Slug: "encyclopedia", SystemTemplate: "old"}}, {Config: Config{Slug: "other"}}}
	override := []*Prompt{{Config: Config{Slug: "encyclopedia", SystemTemplate: "new"}}}

	merged := Merge(base, override)
	reg, err := NewRegistry(merged)
	require.NoError(t, err)

	p, err := reg.Get("encyclopedia")
	require.NoError(t, err)
	require.Equal(t, "new", p.Config.SystemTemplate)
	require.Len(t, reg.List(), 2)
}

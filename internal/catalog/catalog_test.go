package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	ids := make([]string, 0, len(c.Grids))
	for _, grid := range c.Grids {
		ids = append(ids, grid.ID)
		require.NotEmpty(t, grid.Items, grid.ID)
		for _, item := range grid.Items {
			assert.NotEmpty(t, item.Query, "%s/%s", grid.ID, item.ID)
		}
	}
	assert.Equal(t, []string{
		"eras", "landmarks", "heritage", "islamic-architecture",
		"islamic-scholars", "festivals", "facts", "faq", "emergency",
	}, ids)
}

func TestQueryTemplate(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	item, ok := c.Item("eras", "liberation-war")
	require.True(t, ok)
	assert.Equal(t, "মহান মুক্তিযুদ্ধ এর বিস্তারিত ইতিহাস ও তাৎপর্য", item.Query)

	faq, ok := c.Item("faq", "capital")
	require.True(t, ok)
	assert.Equal(t, faq.Title, faq.Query)
}

func TestResolve(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	query, err := c.Resolve("landmarks/sundarbans")
	require.NoError(t, err)
	assert.Equal(t, "সুন্দরবনের জীববৈচিত্র্য ও ভ্রমণ তথ্য", query)

	_, err = c.Resolve("landmarks")
	require.Error(t, err)
	_, err = c.Resolve("landmarks/missing")
	require.Error(t, err)
	_, err = c.Resolve("missing/sundarbans")
	require.Error(t, err)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing grid id": "grids:\n  - title: x\n    items: []\n",
		"duplicate grid":  "grids:\n  - id: a\n  - id: a\n",
		"item without title": `grids:
  - id: a
    items:
      - id: one
`,
		"duplicate item": `grids:
  - id: a
    items:
      - {id: one, title: One}
      - {id: one, title: Again}
`,
		"bad yaml": "grids: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			require.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`grids:
  - id: custom
    title: Custom
    items:
      - {id: one, title: এক}
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	grid, ok := c.Grid("custom")
	require.True(t, ok)
	assert.Equal(t, "এক", grid.Items[0].Query)

	_, ok = c.Grid("eras")
	assert.False(t, ok)
}

package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/catalog"
	"github.com/deshgyan/deshgyan/internal/core"
	"github.com/deshgyan/deshgyan/internal/core/store"
	"github.com/deshgyan/deshgyan/internal/prefs"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatText, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatText, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func sampleResult() *ailink.SearchResult {
	return &ailink.SearchResult{
		Text: "# পদ্মা সেতু\n\nবাংলাদেশের **দীর্ঘতম** সেতু।\n* **দৈর্ঘ্য:** ৬.১৫ কিমি",
		Sources: []ailink.GroundingSource{
			{Title: "উইকিপিডিয়া", URI: "https://bn.wikipedia.org/wiki/পদ্মা_সেতু"},
			{URI: "https://example.org/padma"},
		},
	}
}

func TestArticleRendererPlainTerminal(t *testing.T) {
	var buf bytes.Buffer
	r := NewArticleRenderer(&buf, 80, prefs.ThemeDark)

	rendered := r.Render(sampleResult())
	assert.Contains(t, rendered, "পদ্মা সেতু\n")
	assert.Contains(t, rendered, "বাংলাদেশের দীর্ঘতম সেতু।")
	assert.Contains(t, rendered, "  • দৈর্ঘ্য: ৬.১৫ কিমি")
	assert.NotContains(t, rendered, "**")
	assert.Contains(t, rendered, sourcesTitle)
	assert.Contains(t, rendered, "1. উইকিপিডিয়া https://bn.wikipedia.org/wiki/পদ্মা_সেতু")
	assert.Contains(t, rendered, "2. https://example.org/padma")
}

func TestArticleRendererWrapsBullets(t *testing.T) {
	var buf bytes.Buffer
	r := NewArticleRenderer(&buf, 24, prefs.ThemeLight)

	rendered := r.RenderText("* one two three four five six seven eight")
	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	require.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[0], "  • one"))
	for _, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, "    "), "continuation %q", line)
	}
}

func TestArticleRendererError(t *testing.T) {
	var buf bytes.Buffer
	r := NewArticleRenderer(&buf, 60, prefs.ThemeLight)

	boxed := r.RenderError(ailink.UserMessage(ailink.ErrorKindTransport), true)
	assert.Contains(t, boxed, "সার্ভারে একটি সমস্যা হয়েছে।")
	assert.Contains(t, boxed, "পুনরায় চালান")

	boxed = r.RenderError(ailink.UserMessage(ailink.ErrorKindConfig), false)
	assert.NotContains(t, boxed, "পুনরায় চালান")
}

func TestStreamPrinterWritesSuffixes(t *testing.T) {
	var buf bytes.Buffer
	p := NewStreamPrinter(&buf)

	require.NoError(t, p.Update("# পদ্মা"))
	require.NoError(t, p.Update("# পদ্মা সেতু"))
	require.NoError(t, p.Update("# পদ্মা সেতু\nদৈর্ঘ্য"))
	require.NoError(t, p.Finish())
	assert.Equal(t, "# পদ্মা সেতু\nদৈর্ঘ্য\n", buf.String())

	buf.Reset()
	p = NewStreamPrinter(&buf)
	require.NoError(t, p.Update("abc"))
	require.NoError(t, p.Update("xyz"))
	assert.Equal(t, "abc\nxyz", buf.String())
	assert.Equal(t, "xyz", p.Printed())
}

func TestArticleMarkdown(t *testing.T) {
	md := ArticleMarkdown(sampleResult())
	assert.True(t, strings.HasPrefix(md, "# পদ্মা সেতু"))
	assert.Contains(t, md, "## তথ্যসূত্র")
	assert.Contains(t, md, "1. [উইকিপিডিয়া](https://bn.wikipedia.org/wiki/পদ্মা_সেতু)")
	assert.Contains(t, md, "2. [https://example.org/padma](https://example.org/padma)")
}

func TestTables(t *testing.T) {
	history := HistoryTable([]string{"পদ্মা সেতু", "সুন্দরবন"})
	assert.Contains(t, history, "QUERY")
	assert.Contains(t, history, "সুন্দরবন")
	assert.Contains(t, HistoryTable(nil), "(no recent queries)")

	c, err := catalog.Default()
	require.NoError(t, err)
	assert.Contains(t, TopicsTable(c), "landmarks")

	grid, ok := c.Grid("landmarks")
	require.True(t, ok)
	rendered := GridTable(grid)
	assert.Contains(t, rendered, "landmarks/sundarbans")
	assert.Contains(t, GridMarkdown(grid), "| landmarks/sundarbans |")

	backoff := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	limits := RateLimitTable([]store.RateLimitEntry{{
		Endpoint: "generativelanguage.googleapis.com",
		State:    core.RateLimitState{RequestCount: 3, BackoffUntil: &backoff},
	}})
	assert.Contains(t, limits, "generativelanguage.googleapis.com")
	assert.Contains(t, limits, "2026-03-15T12:00:00Z")
	assert.Contains(t, RateLimitTable(nil), "(no stored rate limit state)")

	assert.Contains(t, CacheStatsTable(store.CacheStats{Entries: 4, Expired: 1, Hits: 9}), "9")
}

func TestHistoryMarkdown(t *testing.T) {
	assert.Equal(t, "1. এক\n2. দুই\n", HistoryMarkdown([]string{"এক", "দুই"}))
	assert.Equal(t, "_No recent queries._\n", HistoryMarkdown(nil))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"deleted": 2}))
	assert.Equal(t, "{\n  \"deleted\": 2\n}\n", buf.String())
}

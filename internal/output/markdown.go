package output

import (
	"fmt"
	"strings"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/catalog"
)

// ArticleMarkdown returns the answer text followed by a numbered source
// list.
func ArticleMarkdown(result *ailink.SearchResult) string {
	if result == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(result.Text, "\n"))
	sb.WriteString("\n")
	if result.ImageURL != "" {
		sb.WriteString(fmt.Sprintf("\n![](%s)\n", result.ImageURL))
	}
	if len(result.Sources) > 0 {
		sb.WriteString("\n## " + sourcesTitle + "\n\n")
		for i, src := range result.Sources {
			title := src.Title
			if title == "" {
				title = src.URI
			}
			sb.WriteString(fmt.Sprintf("%d. [%s](%s)\n", i+1, escapeMarkdownLink(title), src.URI))
		}
	}
	return sb.String()
}

// HistoryMarkdown renders recent queries as a Markdown list.
func HistoryMarkdown(queries []string) string {
	if len(queries) == 0 {
		return "_No recent queries._\n"
	}
	var sb strings.Builder
	for i, q := range queries {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, q))
	}
	return sb.String()
}

// GridMarkdown renders one grid as a Markdown table.
func GridMarkdown(g catalog.Grid) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", g.Title))
	sb.WriteString("| Topic | Title | Query |\n")
	sb.WriteString("|-------|-------|-------|\n")
	for _, item := range g.Items {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			escapeMarkdownCell(g.ID+"/"+item.ID),
			escapeMarkdownCell(item.Title),
			escapeMarkdownCell(item.Query),
		))
	}
	return sb.String()
}

// TopicsMarkdown renders every grid.
func TopicsMarkdown(c *catalog.Catalog) string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, len(c.Grids))
	for _, g := range c.Grids {
		parts = append(parts, GridMarkdown(g))
	}
	return strings.Join(parts, "\n")
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}

func escapeMarkdownLink(value string) string {
	return strings.NewReplacer("[", "\\[", "]", "\\]").Replace(value)
}

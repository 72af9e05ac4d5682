package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/markdown"
	"github.com/deshgyan/deshgyan/internal/prefs"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

const sourcesTitle = "তথ্যসূত্র"

type palette struct {
	accent lipgloss.Color
	text   lipgloss.Color
	muted  lipgloss.Color
	danger lipgloss.Color
}

var palettes = map[prefs.Theme]palette{
	prefs.ThemeLight: {accent: "#006A4E", text: "#1F2933", muted: "#6B7280", danger: "#B91C1C"},
	prefs.ThemeDark:  {accent: "#34D399", text: "#E5E7EB", muted: "#9CA3AF", danger: "#F87171"},
}

// ArticleRenderer styles formatted answers for a terminal.
type ArticleRenderer struct {
	width int

	h1, h2, h3 lipgloss.Style
	bold       lipgloss.Style
	bullet     lipgloss.Style
	muted      lipgloss.Style
	errorBox   lipgloss.Style
}

// NewArticleRenderer builds a renderer for w. Color output follows what w
// supports; width <= 0 uses DefaultWidth.
func NewArticleRenderer(w io.Writer, width int, theme prefs.Theme) *ArticleRenderer {
	if width <= 0 {
		width = DefaultWidth
	}
	colors, ok := palettes[theme]
	if !ok {
		colors = palettes[prefs.ThemeLight]
	}
	r := lipgloss.NewRenderer(w)

	return &ArticleRenderer{
		width:  width,
		h1:     r.NewStyle().Bold(true).Foreground(colors.accent).Underline(true),
		h2:     r.NewStyle().Bold(true).Foreground(colors.accent),
		h3:     r.NewStyle().Bold(true).Foreground(colors.text),
		bold:   r.NewStyle().Bold(true).Foreground(colors.text),
		bullet: r.NewStyle().Foreground(colors.accent),
		muted:  r.NewStyle().Foreground(colors.muted),
		errorBox: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.danger).
			Foreground(colors.danger).
			Padding(0, 1),
	}
}

// Render formats a complete answer with its sources and optional image.
func (a *ArticleRenderer) Render(result *ailink.SearchResult) string {
	if result == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(a.RenderText(result.Text))
	if result.ImageURL != "" && !strings.HasPrefix(result.ImageURL, "data:") {
		sb.WriteString("\n")
		sb.WriteString(a.muted.Render("ছবি: " + result.ImageURL))
		sb.WriteString("\n")
	}
	sb.WriteString(a.RenderSources(result.Sources))
	return sb.String()
}

// RenderText formats answer text block by block.
func (a *ArticleRenderer) RenderText(text string) string {
	var sb strings.Builder
	for _, block := range markdown.Format(text) {
		switch block.Kind {
		case markdown.KindHeading:
			sb.WriteString(a.heading(block.Level).Render(block.Text()))
		case markdown.KindBullet:
			sb.WriteString(a.hangingIndent(a.bullet.Render("•")+" ", a.runs(block.Runs)))
		case markdown.KindSpacer:
		default:
			sb.WriteString(wordwrap.String(a.runs(block.Runs), a.width))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderSources lists citations, or returns "" when there are none.
func (a *ArticleRenderer) RenderSources(sources []ailink.GroundingSource) string {
	if len(sources) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(a.h3.Render(sourcesTitle))
	sb.WriteString("\n")
	for i, src := range sources {
		title := src.Title
		if title == "" {
			title = src.URI
		}
		line := fmt.Sprintf("%d. %s", i+1, title)
		if src.Title != "" {
			line += " " + a.muted.Render(src.URI)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderError boxes a user-facing failure message.
func (a *ArticleRenderer) RenderError(message string, retryable bool) string {
	body := wordwrap.String(message, a.width-4)
	if retryable {
		body += "\n" + a.muted.Render("আবার চেষ্টা করতে একই প্রশ্ন পুনরায় চালান।")
	}
	return a.errorBox.Render(body) + "\n"
}

func (a *ArticleRenderer) heading(level int) lipgloss.Style {
	switch level {
	case 1:
		return a.h1
	case 2:
		return a.h2
	default:
		return a.h3
	}
}

func (a *ArticleRenderer) runs(runs []markdown.Run) string {
	var sb strings.Builder
	for _, run := range runs {
		if run.Bold {
			sb.WriteString(a.bold.Render(run.Text))
			continue
		}
		sb.WriteString(run.Text)
	}
	return sb.String()
}

// hangingIndent wraps content so continuation lines align after marker.
func (a *ArticleRenderer) hangingIndent(marker, content string) string {
	const indent = "    "
	wrapped := wordwrap.String(content, a.width-len(indent))
	lines := strings.Split(wrapped, "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = "  " + marker + lines[i]
			continue
		}
		lines[i] = indent + lines[i]
	}
	return strings.Join(lines, "\n")
}

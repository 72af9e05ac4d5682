package markdown

import (
	"html/template"
	"strings"
	"sync"

	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	mdhtml "github.com/gomarkdown/markdown/html"
)

const spacerHTML = `<div class="spacer" aria-hidden="true"></div>`

// RenderHTML renders blocks as an HTML fragment. Consecutive bullets are
// grouped into a single list and all text is escaped by the renderer.
func RenderHTML(blocks []Block) template.HTML {
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.FlagsNone})
	out := gomarkdown.Render(documentFor(blocks), renderer)
	return template.HTML(out) // #nosec G203 -- text nodes are escaped by the renderer
}

// documentFor builds the article tree directly. Parsing the source again
// would merge lines into paragraphs and drop the blank-line spacers.
func documentFor(blocks []Block) *ast.Document {
	doc := &ast.Document{}
	var list *ast.List

	for _, b := range blocks {
		if b.Kind != KindBullet {
			list = nil
		}
		switch b.Kind {
		case KindHeading:
			heading := &ast.Heading{Level: b.Level}
			appendRuns(heading, b.Runs)
			ast.AppendChild(doc, heading)
		case KindBullet:
			if list == nil {
				list = &ast.List{Tight: true, BulletChar: '-'}
				ast.AppendChild(doc, list)
			}
			item := &ast.ListItem{Tight: true, BulletChar: '-'}
			appendRuns(item, b.Runs)
			ast.AppendChild(list, item)
		case KindSpacer:
			spacer := &ast.HTMLBlock{}
			spacer.Literal = []byte(spacerHTML)
			ast.AppendChild(doc, spacer)
		default:
			para := &ast.Paragraph{}
			appendRuns(para, b.Runs)
			ast.AppendChild(doc, para)
		}
	}
	return doc
}

func appendRuns(parent ast.Node, runs []Run) {
	for _, r := range runs {
		text := &ast.Text{}
		text.Literal = []byte(r.Text)
		if !r.Bold {
			ast.AppendChild(parent, text)
			continue
		}
		strong := &ast.Strong{}
		ast.AppendChild(strong, text)
		ast.AppendChild(parent, strong)
	}
}

// PlainText flattens blocks back into unstyled lines.
func PlainText(blocks []Block) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case KindSpacer:
			lines = append(lines, "")
		case KindBullet:
			lines = append(lines, "• "+b.Text())
		default:
			lines = append(lines, b.Text())
		}
	}
	return strings.Join(lines, "\n")
}

// Formatter memoizes the most recent Format call. Streaming callers format
// the same cumulative snapshot repeatedly while re-rendering, so a single
// entry is enough.
type Formatter struct {
	mu     sync.Mutex
	text   string
	valid  bool
	blocks []Block
}

// Format returns the blocks for text, reusing the previous result when the
// input is unchanged. The returned slice must not be modified.
func (f *Formatter) Format(text string) []Block {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.valid && f.text == text {
		return f.blocks
	}
	f.blocks = Format(text)
	f.text = text
	f.valid = true
	return f.blocks
}

// Package markdown converts the line-oriented markdown subset produced by
// the encyclopedia prompt into typed display blocks.
//
// Only what the answers actually use is recognized: three heading levels,
// single-level bullets, blank-line spacers and inline **bold** runs.
// Everything else, including malformed markdown, degrades to paragraphs.
package markdown

import (
	"regexp"
	"strings"
)

// Kind identifies the type of a display block.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindBullet    Kind = "bullet"
	KindParagraph Kind = "paragraph"
	KindSpacer    Kind = "spacer"
)

// Run is a span of inline text.
type Run struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// Block is one rendered line of an article.
type Block struct {
	Kind  Kind  `json:"kind"`
	Level int   `json:"level,omitempty"`
	Runs  []Run `json:"runs,omitempty"`
}

// Text returns the concatenated run text of the block.
func (b Block) Text() string {
	if len(b.Runs) == 1 {
		return b.Runs[0].Text
	}
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

var boldPattern = regexp.MustCompile(`\*\*.*?\*\*`)

var headingPrefixes = []struct {
	prefix string
	level  int
}{
	{"### ", 3},
	{"## ", 2},
	{"# ", 1},
}

// Format converts text into display blocks, one per input line.
//
// Format is pure: the same input always yields an equal result.
func Format(text string) []Block {
	if text == "" {
		return []Block{}
	}

	lines := strings.Split(text, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, classifyLine(line))
	}
	return blocks
}

func classifyLine(line string) Block {
	trimmed := strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	if trimmed == "" {
		return Block{Kind: KindSpacer}
	}

	for _, h := range headingPrefixes {
		if strings.HasPrefix(trimmed, h.prefix) {
			content := strings.TrimSpace(trimmed[len(h.prefix):])
			return Block{Kind: KindHeading, Level: h.level, Runs: InlineRuns(content)}
		}
	}

	if strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "- ") {
		return Block{Kind: KindBullet, Runs: InlineRuns(trimmed[2:])}
	}

	return Block{Kind: KindParagraph, Runs: InlineRuns(trimmed)}
}

// InlineRuns splits content into plain and bold runs. Bold spans are
// non-greedy, non-nesting **...** pairs; an unterminated ** stays literal.
func InlineRuns(content string) []Run {
	if content == "" {
		return nil
	}

	matches := boldPattern.FindAllStringIndex(content, -1)
	if len(matches) == 0 {
		return []Run{{Text: content}}
	}

	runs := make([]Run, 0, 2*len(matches)+1)
	cursor := 0
	for _, m := range matches {
		if m[0] > cursor {
			runs = append(runs, Run{Text: content[cursor:m[0]]})
		}
		segment := content[m[0]:m[1]]
		if inner := segment[2 : len(segment)-2]; inner != "" {
			runs = append(runs, Run{Text: inner, Bold: true})
		}
		cursor = m[1]
	}
	if cursor < len(content) {
		runs = append(runs, Run{Text: content[cursor:]})
	}
	return runs
}

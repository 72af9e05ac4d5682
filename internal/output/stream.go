package output

import (
	"io"
	"strings"
)

// StreamPrinter writes cumulative answer text as it grows, printing only
// the new suffix each time.
type StreamPrinter struct {
	w       io.Writer
	printed string
}

// NewStreamPrinter returns a printer writing to w.
func NewStreamPrinter(w io.Writer) *StreamPrinter {
	return &StreamPrinter{w: w}
}

// Update prints whatever text adds to the previous update. If text does not
// extend what was printed, it is reprinted in full on a new line.
func (p *StreamPrinter) Update(text string) error {
	var err error
	switch {
	case strings.HasPrefix(text, p.printed):
		_, err = io.WriteString(p.w, text[len(p.printed):])
	default:
		_, err = io.WriteString(p.w, "\n"+text)
	}
	p.printed = text
	return err
}

// Finish terminates the output with a newline if needed.
func (p *StreamPrinter) Finish() error {
	if p.printed == "" || strings.HasSuffix(p.printed, "\n") {
		return nil
	}
	_, err := io.WriteString(p.w, "\n")
	return err
}

// Printed returns everything written so far.
func (p *StreamPrinter) Printed() string {
	return p.printed
}

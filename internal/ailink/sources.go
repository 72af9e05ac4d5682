package ailink

import (
	"strings"

	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

const defaultSourceTitle = "Source"

// SourceSet collects citations in first-seen order, keyed by URI.
// The zero value is ready to use. It is not safe for concurrent use.
type SourceSet struct {
	items []GroundingSource
	seen  map[string]struct{}
}

// Add records src unless its URI is empty, the "#" placeholder, or
// already present. It reports whether src was added.
func (s *SourceSet) Add(src GroundingSource) bool {
	uri := strings.TrimSpace(src.URI)
	if uri == "" || uri == "#" {
		return false
	}
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	if _, ok := s.seen[uri]; ok {
		return false
	}
	title := strings.TrimSpace(src.Title)
	if title == "" {
		title = defaultSourceTitle
	}
	s.seen[uri] = struct{}{}
	s.items = append(s.items, GroundingSource{Title: title, URI: uri})
	return true
}

// AddCitations adds driver citations and reports how many were new.
func (s *SourceSet) AddCitations(citations []driver.Citation) int {
	added := 0
	for _, c := range citations {
		if s.Add(GroundingSource{Title: c.Title, URI: c.URI}) {
			added++
		}
	}
	return added
}

// Snapshot returns a copy of the sources in insertion order.
func (s *SourceSet) Snapshot() []GroundingSource {
	out := make([]GroundingSource, len(s.items))
	copy(out, s.items)
	return out
}

func (s *SourceSet) Len() int {
	return len(s.items)
}

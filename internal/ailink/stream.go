package ailink

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/deshgyan/deshgyan/internal/ailink/driver"
	"github.com/deshgyan/deshgyan/internal/metrics"
)

var errStreamOpen = errors.New("stream has not finished")

// Stream is a pull iterator over one answer. Each successful Next makes a
// new cumulative Snapshot available. A Stream is not safe for concurrent
// use and cannot be restarted.
type Stream struct {
	ctx      context.Context
	cancel   context.CancelFunc
	events   driver.EventStream
	provider string
	started  time.Time
	onDone   func(*SearchResult, *SearchError)

	pending *SearchResult
	cached  bool

	sources    SourceSet
	text       strings.Builder
	snapshot   Snapshot
	chunks     int
	firstChunk time.Duration

	done   bool
	result *SearchResult
	err    *SearchError
	rawErr error

	closeOnce sync.Once
}

func newCachedStream(result *SearchResult, provider string, started time.Time) *Stream {
	return &Stream{
		provider: provider,
		started:  started,
		pending:  result,
		cached:   true,
	}
}

// Next blocks until the next text increment arrives. It returns false when
// the answer is complete or the stream failed; check Err or Result.
func (s *Stream) Next() bool {
	if s == nil || s.done {
		return false
	}

	if s.cached {
		if s.pending == nil {
			s.finish(s.result, nil)
			return false
		}
		s.result = s.pending
		s.pending = nil
		s.snapshot = Snapshot{Text: s.result.Text, Sources: copySources(s.result.Sources)}
		s.chunks = 1
		return true
	}

	for {
		ev, err := s.events.Recv()
		if errors.Is(err, io.EOF) {
			s.complete()
			return false
		}
		if err != nil {
			if ctxErr := s.ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
				err = errors.Join(ctxErr, err)
			}
			s.fail(err)
			return false
		}
		if ev == nil {
			continue
		}

		s.sources.AddCitations(ev.Citations)
		if ev.Text == "" {
			continue
		}
		if s.chunks == 0 {
			s.firstChunk = time.Since(s.started)
		}
		s.chunks++
		s.text.WriteString(ev.Text)
		s.snapshot = Snapshot{Text: s.text.String(), Sources: s.sources.Snapshot()}
		return true
	}
}

// Snapshot returns the cumulative text and sources seen so far.
func (s *Stream) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{Text: s.snapshot.Text, Sources: copySources(s.snapshot.Sources)}
}

// Err returns the classified failure, if any.
func (s *Stream) Err() error {
	if s == nil || s.err == nil {
		return nil
	}
	return s.err
}

// Result returns the final answer once Next has returned false.
func (s *Stream) Result() (*SearchResult, error) {
	if s == nil {
		return nil, errStreamOpen
	}
	if !s.done {
		return nil, errStreamOpen
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// Cached reports whether the answer came from the answer cache.
func (s *Stream) Cached() bool {
	return s != nil && s.cached
}

// Close releases the transport. It is safe to call more than once.
func (s *Stream) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.closeOnce.Do(func() {
		if !s.done {
			s.fail(context.Canceled)
		}
		if s.cancel != nil {
			s.cancel()
		}
		if s.events != nil {
			err = s.events.Close()
		}
	})
	return err
}

func (s *Stream) complete() {
	text := s.text.String()
	if strings.TrimSpace(text) == "" {
		s.fail(emptyResultError())
		return
	}
	s.finish(&SearchResult{Text: text, Sources: s.sources.Snapshot()}, nil)
}

func (s *Stream) fail(err error) {
	s.rawErr = err
	s.finish(nil, classifyError(err))
}

func (s *Stream) finish(result *SearchResult, serr *SearchError) {
	if s.done {
		return
	}
	s.done = true
	s.result = result
	s.err = serr

	if s.onDone != nil {
		s.onDone(result, serr)
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.cached {
		metrics.RecordSearch("cache_hit", "")
		return
	}
	recordOutcome(s.provider, serr, s.chunks, s.firstChunk, time.Since(s.started))
}

func recordOutcome(provider string, serr *SearchError, chunks int, firstChunk, elapsed time.Duration) {
	switch {
	case serr == nil:
		metrics.RecordSearch("success", "")
	case serr.Kind == ErrorKindCanceled:
		metrics.RecordSearch("canceled", serr.Kind.String())
	default:
		metrics.RecordSearch("error", serr.Kind.String())
	}
	metrics.RecordStreamChunks(provider, chunks)
	if chunks > 0 {
		metrics.RecordFirstChunk(provider, firstChunk)
	}
	metrics.RecordSearchDuration(provider, elapsed)
}

func copySources(in []GroundingSource) []GroundingSource {
	out := make([]GroundingSource, len(in))
	copy(out, in)
	return out
}

// responseStream adapts a unary response to an EventStream for drivers
// without streaming support.
type responseStream struct {
	resp *driver.Response
	sent bool
}

func newResponseStream(resp *driver.Response) *responseStream {
	return &responseStream{resp: resp}
}

func (r *responseStream) Recv() (*driver.StreamEvent, error) {
	if r.sent || r.resp == nil {
		return nil, io.EOF
	}
	r.sent = true
	return &driver.StreamEvent{
		Text:         extractContent(r.resp),
		Citations:    r.resp.Citations,
		FinishReason: r.resp.FinishReason,
		Usage:        r.resp.Usage,
	}, nil
}

func (r *responseStream) Close() error {
	return nil
}

func extractContent(resp *driver.Response) string {
	if resp == nil || len(resp.Content) == 0 {
		return ""
	}
	parts := make([]string, 0, len(resp.Content))
	for _, block := range resp.Content {
		parts = append(parts, block.Text)
	}
	return strings.Join(parts, "\n")
}

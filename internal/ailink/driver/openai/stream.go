package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

type chatStream struct {
	provider string
	body     io.ReadCloser
	reader   *driver.SSEReader
	release  func()
	trace    *driver.StreamTrace

	done      bool
	closeOnce sync.Once
}

func newChatStream(provider string, body io.ReadCloser, release func(), trace *driver.StreamTrace) *chatStream {
	return &chatStream{
		provider: provider,
		body:     body,
		reader:   driver.NewSSEReader(body),
		release:  release,
		trace:    trace,
	}
}

// Recv returns the next event carrying text, citations or a finish reason.
func (s *chatStream) Recv() (*driver.StreamEvent, error) {
	for {
		if s.done {
			return nil, io.EOF
		}

		_, data, err := s.reader.ReadEvent()
		if err != nil {
			s.done = true
			if errors.Is(err, io.EOF) {
				s.trace.Finish(nil)
				return nil, io.EOF
			}
			s.trace.Finish(err)
			return nil, fmt.Errorf("read stream: %w", err)
		}
		s.trace.Add(data)

		if driver.IsDone(data) {
			s.done = true
			s.trace.Finish(nil)
			return nil, io.EOF
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			s.done = true
			s.trace.Finish(err)
			return nil, fmt.Errorf("%w: %v", driver.ErrDecode, err)
		}
		if chunk.Error != nil {
			s.done = true
			perr := &driver.ProviderError{Provider: s.provider, Message: chunk.Error.Message, Status: chunk.Error.Type, RawResponse: data}
			s.trace.Finish(perr)
			return nil, perr
		}

		event := &driver.StreamEvent{
			Citations: toCitations(chunk.Citations),
			Usage:     chunk.Usage.toDriver(),
		}
		if len(chunk.Choices) > 0 {
			event.Text = chunk.Choices[0].Delta.Content
			if fr := chunk.Choices[0].FinishReason; fr != nil {
				event.FinishReason = *fr
			}
		}
		if event.Text == "" && len(event.Citations) == 0 && event.FinishReason == "" && event.Usage == nil {
			continue
		}
		return event, nil
	}
}

func (s *chatStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.done = true
		err = s.body.Close()
		if s.release != nil {
			s.release()
		}
		s.trace.Finish(nil)
	})
	return err
}

package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/deshgyan/deshgyan/internal/ailink/driver"
)

type stream struct {
	body    io.ReadCloser
	reader  *driver.SSEReader
	release func()
	trace   *driver.StreamTrace

	done      bool
	closeOnce sync.Once
}

func newStream(body io.ReadCloser, release func(), trace *driver.StreamTrace) *stream {
	return &stream{body: body, reader: driver.NewSSEReader(body), release: release, trace: trace}
}

func (s *stream) Recv() (*driver.StreamEvent, error) {
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

		var chunk generateResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			s.done = true
			s.trace.Finish(err)
			return nil, fmt.Errorf("%w: %v", driver.ErrDecode, err)
		}
		if chunk.Error != nil {
			s.done = true
			perr := chunk.Error.toProviderError(data)
			s.trace.Finish(perr)
			return nil, perr
		}

		event := &driver.StreamEvent{
			Text:         chunk.text(),
			Citations:    chunk.citations(),
			FinishReason: chunk.finishReason(),
			Usage:        chunk.usage(),
		}
		if event.Text == "" && len(event.Citations) == 0 && event.FinishReason == "" && event.Usage == nil {
			continue
		}
		return event, nil
	}
}

func (s *stream) Close() error {
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

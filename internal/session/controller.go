// Package session drives one interactive search session: the idle, loading,
// success and error states, streamed partial text, and the focus hints a
// front end uses to move between the search box and the results.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/history"
	"github.com/deshgyan/deshgyan/internal/observability"
)

// State is the session's position in the search lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// View is a read-only copy of the session state.
type View struct {
	State        State                `json:"state"`
	Query        string               `json:"query"`
	PartialText  string               `json:"partialText"`
	Result       *ailink.SearchResult `json:"result,omitempty"`
	ErrorKind    ailink.ErrorKind     `json:"errorKind"`
	ErrorMessage string               `json:"errorMessage,omitempty"`
	Generation   uint64               `json:"generation"`
}

// EventType names a controller notification.
type EventType string

const (
	EventState        EventType = "state"
	EventChunk        EventType = "chunk"
	EventFocusResults EventType = "focus_results"
	EventFocusSearch  EventType = "focus_search"
)

// Event carries the view as it was when the event was emitted.
type Event struct {
	Type EventType
	View View
}

// Listener receives controller events. Listeners run synchronously and must
// not call Submit, Reset, Retry or Wait.
type Listener func(Event)

// Streamer runs one query, reporting cumulative text to onChunk and the
// final answer to onComplete. *ailink.Service satisfies it.
type Streamer interface {
	Run(ctx context.Context, query string, onChunk func(string), onComplete func(*ailink.SearchResult)) error
}

// Controller owns the state of one search session. It is safe for
// concurrent use.
type Controller struct {
	streamer Streamer
	recent   *history.Recent
	logger   *logging.Logger

	// emitMu orders state changes and their notifications.
	emitMu sync.Mutex

	mu        sync.Mutex
	view      View
	cancel    context.CancelFunc
	done      chan struct{}
	listeners []subscription
	nextID    uint64
}

type subscription struct {
	id uint64
	fn Listener
}

// NewController builds an idle controller. recent may be nil.
func NewController(streamer Streamer, recent *history.Recent, logger *logging.Logger) *Controller {
	return &Controller{streamer: streamer, recent: recent, logger: logger}
}

// View returns a copy of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Subscribe registers l for future events.
func (c *Controller) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, subscription{id: id, fn: l})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, sub := range c.listeners {
			if sub.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Submit starts a search for query, or for the current query when query is
// blank. It returns false without side effects when there is nothing to
// search for. A running search is canceled and its late callbacks dropped.
func (c *Controller) Submit(ctx context.Context, query string) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	effective := strings.TrimSpace(query)
	if effective == "" {
		c.mu.Lock()
		effective = strings.TrimSpace(c.view.Query)
		c.mu.Unlock()
	}
	if effective == "" {
		return false
	}

	if c.recent != nil {
		if err := c.recent.Record(ctx, effective); err != nil {
			c.warn("Failed to record recent query", zap.Error(err))
		}
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	generation := c.view.Generation + 1
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.view = View{State: StateLoading, Query: effective, Generation: generation}
	snapshot := c.view
	c.mu.Unlock()

	c.emit(EventState, snapshot)
	c.emit(EventFocusResults, snapshot)

	go c.run(runCtx, cancel, done, generation, effective)
	return true
}

// Retry submits the current query again.
func (c *Controller) Retry(ctx context.Context) bool {
	return c.Submit(ctx, "")
}

// Reset cancels any running search and returns to the idle state.
func (c *Controller) Reset() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.view = View{State: StateIdle, Generation: c.view.Generation + 1}
	snapshot := c.view
	c.mu.Unlock()

	c.emit(EventState, snapshot)
	c.emit(EventFocusSearch, snapshot)
}

// Wait blocks until the most recently started search has settled.
func (c *Controller) Wait() {
	for {
		c.mu.Lock()
		done := c.done
		c.mu.Unlock()
		if done == nil {
			return
		}
		<-done

		c.mu.Lock()
		same := c.done == done
		c.mu.Unlock()
		if same {
			return
		}
	}
}

// Close cancels any running search.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, generation uint64, query string) {
	defer close(done)
	defer cancel()

	if c.streamer == nil {
		c.fail(generation, ailink.ErrorKindConfig)
		return
	}

	err := c.streamer.Run(ctx, query,
		func(text string) {
			c.apply(generation, EventChunk, func(v *View) {
				v.PartialText = text
			})
		},
		func(result *ailink.SearchResult) {
			if result == nil || strings.TrimSpace(result.Text) == "" {
				c.fail(generation, ailink.ErrorKindEmpty)
				return
			}
			c.apply(generation, EventState, func(v *View) {
				v.State = StateSuccess
				v.Result = result
			})
		},
	)
	if err == nil {
		return
	}

	kind := ailink.KindOf(err)
	if kind == ailink.ErrorKindCanceled {
		return
	}
	c.warn("Search failed",
		zap.String("query", query),
		zap.String("kind", kind.String()),
		zap.Error(err))
	c.fail(generation, kind)
}

func (c *Controller) fail(generation uint64, kind ailink.ErrorKind) {
	c.apply(generation, EventState, func(v *View) {
		v.State = StateError
		v.ErrorKind = kind
		v.ErrorMessage = ailink.UserMessage(kind)
	})
}

// apply mutates the view and emits ev unless generation has been superseded.
func (c *Controller) apply(generation uint64, ev EventType, mutate func(*View)) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.view.Generation != generation {
		c.mu.Unlock()
		return
	}
	mutate(&c.view)
	snapshot := c.view
	c.mu.Unlock()

	c.emit(ev, snapshot)
}

func (c *Controller) emit(ev EventType, view View) {
	c.mu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, sub := range c.listeners {
		listeners = append(listeners, sub.fn)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(Event{Type: ev, View: view})
	}
}

func (c *Controller) warn(msg string, fields ...zap.Field) {
	logger := c.logger
	if logger == nil {
		logger = observability.Logger()
	}
	if logger != nil {
		logger.Warn(msg, fields...)
	}
}

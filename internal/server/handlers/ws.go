package handlers

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/deshgyan/deshgyan/internal/server/middleware"
	"github.com/deshgyan/deshgyan/internal/session"
)

const (
	wsMaxMessageSize = 16 * 1024
	wsReadTimeout    = 90 * time.Second
	wsWriteTimeout   = 10 * time.Second
	wsPingInterval   = 30 * time.Second
	wsSendBuffer     = 64
)

// Client message types accepted on /ws.
const (
	wsSubmit = "submit"
	wsReset  = "reset"
	wsRetry  = "retry"
	wsPing   = "ping"
)

type wsClientMessage struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
}

// wsServerMessage is sent for every controller event. Focus events carry the
// element the client should focus: "results" or "search".
type wsServerMessage struct {
	Type   string        `json:"type"`
	Target string        `json:"target,omitempty"`
	View   *session.View `json:"view,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// safeConn serializes writes to a websocket connection. Close may be called
// from any goroutine and unblocks a pending write.
type safeConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func (c *safeConn) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *safeConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return nil
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

func (c *safeConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

// Session upgrades GET /ws to a live search session. Each connection gets
// its own controller; recent queries and preferences are shared.
func (a *API) Session(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		a.debug("WebSocket upgrade failed", zap.String("request_id", requestID), zap.Error(err))
		return
	}
	safe := &safeConn{conn: conn}
	defer safe.Close() // nolint:errcheck // best-effort cleanup

	sess := a.app.WithController(a.searcher, a.logger)
	ctrl := sess.Controller
	defer ctrl.Close()

	// The request context ends with the handler; searches are tied to the
	// connection instead.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Controller listeners run while the controller holds its emit lock, so
	// they only enqueue. writeLoop owns the socket writes.
	out := &wsOutbox{
		ch:   make(chan wsServerMessage, wsSendBuffer),
		done: ctx.Done(),
		overflow: func() {
			a.debug("WebSocket client too slow, closing", zap.String("request_id", requestID))
			cancel()
			_ = safe.Close()
		},
	}
	go a.writeLoop(ctx, cancel, safe, out.ch, requestID)

	unsubscribe := ctrl.Subscribe(out.offer)
	defer unsubscribe()

	view := ctrl.View()
	if !out.send(wsServerMessage{Type: string(session.EventState), View: &view}) {
		return
	}

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	go keepAlive(ctx, safe)

	for {
		var msg wsClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.debug("WebSocket closed", zap.String("request_id", requestID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch msg.Type {
		case wsSubmit:
			if !ctrl.Submit(ctx, msg.Query) {
				out.send(wsServerMessage{Type: "error", Error: queryRequiredMessage})
			}
		case wsRetry:
			ctrl.Retry(ctx)
		case wsReset:
			ctrl.Reset()
		case wsPing:
			out.send(wsServerMessage{Type: "pong"})
		default:
			out.send(wsServerMessage{Type: "error", Error: "unknown message type: " + msg.Type})
		}
	}
}

// wsOutbox queues frames for writeLoop.
type wsOutbox struct {
	ch       chan wsServerMessage
	done     <-chan struct{}
	overflow func()
}

// offer queues the frame for ev without blocking. When the queue is full a
// chunk is dropped, since snapshots are cumulative and a later frame carries
// its text. Any other event calls overflow.
func (o *wsOutbox) offer(ev session.Event) {
	select {
	case o.ch <- serverMessageFor(ev):
	case <-o.done:
	default:
		if ev.Type != session.EventChunk {
			o.overflow()
		}
	}
}

// send queues msg, waiting for room until the connection ends.
func (o *wsOutbox) send(msg wsServerMessage) bool {
	select {
	case o.ch <- msg:
		return true
	case <-o.done:
		return false
	}
}

// writeLoop drains outbox to the socket until ctx ends or a write fails.
func (a *API) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *safeConn, outbox <-chan wsServerMessage, requestID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-outbox:
			if err := conn.WriteJSON(msg); err != nil {
				a.debug("WebSocket write failed", zap.String("request_id", requestID), zap.Error(err))
				cancel()
				_ = conn.Close()
				return
			}
		}
	}
}

func keepAlive(ctx context.Context, conn *safeConn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

func serverMessageFor(ev session.Event) wsServerMessage {
	view := ev.View
	msg := wsServerMessage{Type: string(ev.Type), View: &view}
	switch ev.Type {
	case session.EventFocusResults:
		msg.Type, msg.Target = "focus", "results"
	case session.EventFocusSearch:
		msg.Type, msg.Target = "focus", "search"
	}
	return msg
}

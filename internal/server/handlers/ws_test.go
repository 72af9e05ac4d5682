package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/session"
)

func TestOutboxOfferNeverBlocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	overflows := 0
	out := &wsOutbox{
		ch:       make(chan wsServerMessage, 1),
		done:     ctx.Done(),
		overflow: func() { overflows++ },
	}

	chunk := session.Event{Type: session.EventChunk, View: session.View{PartialText: "ক"}}
	state := session.Event{Type: session.EventState, View: session.View{State: session.StateSuccess}}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		out.offer(chunk)
		out.offer(chunk)
		out.offer(state)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("offer blocked on a full queue")
	}

	assert.Equal(t, 1, overflows)
	require.Len(t, out.ch, 1)
	first := <-out.ch
	assert.Equal(t, "chunk", first.Type)
	assert.Equal(t, "ক", first.View.PartialText)
}

func TestOutboxSendStopsWithConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := &wsOutbox{ch: make(chan wsServerMessage, 1), done: ctx.Done()}

	require.True(t, out.send(wsServerMessage{Type: "pong"}))
	cancel()
	assert.False(t, out.send(wsServerMessage{Type: "pong"}))
}

func TestServerMessageForFocus(t *testing.T) {
	msg := serverMessageFor(session.Event{Type: session.EventFocusSearch})
	assert.Equal(t, "focus", msg.Type)
	assert.Equal(t, "search", msg.Target)

	msg = serverMessageFor(session.Event{Type: session.EventState, View: session.View{
		State:  session.StateSuccess,
		Result: &ailink.SearchResult{Text: "x"},
	}})
	assert.Equal(t, "state", msg.Type)
	require.NotNil(t, msg.View)
	assert.Equal(t, "x", msg.View.Result.Text)
}

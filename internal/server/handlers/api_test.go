package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/prefs"
	"github.com/deshgyan/deshgyan/internal/session"
)

type nopSearcher struct{}

func (nopSearcher) Run(context.Context, string, func(string), func(*ailink.SearchResult)) error {
	return nil
}

func (nopSearcher) RunSnapshots(context.Context, string, func(ailink.Snapshot), func(*ailink.SearchResult)) error {
	return nil
}

func (nopSearcher) Search(context.Context, string) (*ailink.SearchResult, error) {
	return &ailink.SearchResult{}, nil
}

func TestNewAPIRequiresDependencies(t *testing.T) {
	_, err := NewAPI(nil, nil, nil, APIOptions{})
	require.Error(t, err)

	app := session.NewAppSession(context.Background(), prefs.NewMemory(), nopSearcher{}, session.AppOptions{})
	_, err = NewAPI(nopSearcher{}, app, nil, APIOptions{})
	require.NoError(t, err)
}

func TestOriginAllowed(t *testing.T) {
	allowed := map[string]struct{}{"https://deshgyan.example": {}}

	cases := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin", "", "localhost:8080", true},
		{"same host", "http://localhost:8080", "localhost:8080", true},
		{"configured", "https://deshgyan.example/", "api.internal:8080", true},
		{"foreign", "https://evil.example", "localhost:8080", false},
		{"malformed", "://", "localhost:8080", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Host = tc.host
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			assert.Equal(t, tc.want, originAllowed(req, allowed))
		})
	}
}

func TestServerMessageForFocusEvents(t *testing.T) {
	view := session.View{State: session.StateLoading, Query: "q"}

	msg := serverMessageFor(session.Event{Type: session.EventFocusResults, View: view})
	assert.Equal(t, "focus", msg.Type)
	assert.Equal(t, "results", msg.Target)

	msg = serverMessageFor(session.Event{Type: session.EventFocusSearch, View: view})
	assert.Equal(t, "focus", msg.Type)
	assert.Equal(t, "search", msg.Target)

	msg = serverMessageFor(session.Event{Type: session.EventChunk, View: view})
	assert.Equal(t, "chunk", msg.Type)
	assert.Empty(t, msg.Target)
	require.NotNil(t, msg.View)
	assert.Equal(t, "q", msg.View.Query)
}

func TestEventWriterFramesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	events := &eventWriter{w: rec, flusher: rec}

	events.send("chunk", ailink.Snapshot{Text: "এক\nদুই", Sources: []ailink.GroundingSource{}})
	require.NoError(t, events.err)
	assert.Equal(t, "event: chunk\ndata: {\"text\":\"এক\\nদুই\",\"sources\":[]}\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestSafeImageURL(t *testing.T) {
	assert.True(t, safeImageURL("https://imgen.x.ai/a.png"))
	assert.True(t, safeImageURL("data:image/png;base64,AAAA"))
	assert.False(t, safeImageURL("javascript:alert(1)"))
	assert.False(t, safeImageURL("http://insecure.example/a.png"))
	assert.False(t, safeImageURL(""))
}

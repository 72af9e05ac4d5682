package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/deshgyan/deshgyan/internal/ailink"
	apperrors "github.com/deshgyan/deshgyan/internal/errors"
	"github.com/deshgyan/deshgyan/internal/server/middleware"
)

type searchRequest struct {
	Query string `json:"query"`
}

// Search answers POST /api/search with the complete result in one payload.
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError(queryRequiredMessage))
		return
	}

	a.recordQuery(r.Context(), query)
	result, err := a.searcher.Search(r.Context(), query)
	if err != nil {
		apperrors.RespondWithSearchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SearchStream answers GET /api/search/stream?q= as server-sent events:
// one "chunk" per cumulative snapshot, then "done" or "error".
func (a *API) SearchStream(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError(queryRequiredMessage))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, r, apperrors.NewInternalError("streaming is not supported by this connection"))
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream; charset=utf-8")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	a.recordQuery(ctx, query)

	events := &eventWriter{w: w, flusher: flusher}
	var result *ailink.SearchResult
	err := a.searcher.RunSnapshots(ctx, query,
		func(snap ailink.Snapshot) { events.send("chunk", snap) },
		func(res *ailink.SearchResult) { result = res },
	)
	switch {
	case err == nil:
		events.send("done", result)
	case ctx.Err() != nil || ailink.KindOf(err) == ailink.ErrorKindCanceled:
		a.debug("Search stream closed by client", zap.String("request_id", middleware.GetRequestID(ctx)))
	default:
		events.send("error", apperrors.SearchErrorBody(ctx, err))
	}
	if events.err != nil {
		a.debug("Search stream write failed", zap.Error(events.err))
	}
}

// eventWriter frames server-sent events. After the first write error it
// drops everything.
type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	err     error
}

func (e *eventWriter) send(event string, v interface{}) {
	if e.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		e.err = err
		return
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		e.err = err
		return
	}
	e.flusher.Flush()
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/catalog"
	apperrors "github.com/deshgyan/deshgyan/internal/errors"
	"github.com/deshgyan/deshgyan/internal/observability"
	"github.com/deshgyan/deshgyan/internal/session"
)

// queryRequiredMessage is returned when a search arrives without a query.
const queryRequiredMessage = "অনুসন্ধানের বিষয় (Query) প্রয়োজন।"

const maxRequestBody = 64 * 1024

// Searcher answers queries. *ailink.Service satisfies it.
type Searcher interface {
	session.Streamer
	RunSnapshots(ctx context.Context, query string, onSnapshot func(ailink.Snapshot), onComplete func(*ailink.SearchResult)) error
	Search(ctx context.Context, query string) (*ailink.SearchResult, error)
}

// APIOptions configures NewAPI.
type APIOptions struct {
	// AllowedOrigins lists WebSocket origins accepted besides the request
	// host itself.
	AllowedOrigins []string
	Logger         *logging.Logger
}

// API serves the search, history, preference, topic and page routes.
type API struct {
	searcher Searcher
	app      *session.AppSession
	catalog  *catalog.Catalog
	logger   *logging.Logger
	upgrader websocket.Upgrader
	pages    *template.Template
}

// NewAPI wires the handlers around a searcher and the shared session
// stores. A nil catalog serves no topics.
func NewAPI(searcher Searcher, app *session.AppSession, cat *catalog.Catalog, opts APIOptions) (*API, error) {
	if searcher == nil || app == nil || app.Recent == nil || app.Themes == nil {
		return nil, errors.New("handlers: searcher and session stores are required")
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	if cat == nil {
		cat = &catalog.Catalog{}
	}
	a := &API{
		searcher: searcher,
		app:      app,
		catalog:  cat,
		logger:   opts.Logger,
		pages:    pages,
	}
	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			allowed[strings.ToLower(origin)] = struct{}{}
		}
	}
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, allowed)
		},
	}
	return a, nil
}

// originAllowed accepts requests without an Origin header, same-host
// origins and configured origins.
func originAllowed(r *http.Request, allowed map[string]struct{}) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if _, ok := allowed[strings.ToLower(strings.TrimRight(origin, "/"))]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// recordQuery adds a query to the shared recent list. Failures only cost
// persistence, so they are logged.
func (a *API) recordQuery(ctx context.Context, query string) {
	if a.app == nil || a.app.Recent == nil {
		return
	}
	if err := a.app.Recent.Record(ctx, query); err != nil {
		a.warn("Failed to persist recent query", zap.Error(err))
	}
}

func (a *API) log() *logging.Logger {
	if a.logger != nil {
		return a.logger
	}
	return observability.Logger()
}

func (a *API) warn(msg string, fields ...zap.Field) {
	if logger := a.log(); logger != nil {
		logger.Warn(msg, fields...)
	}
}

func (a *API) debug(msg string, fields ...zap.Field) {
	if logger := a.log(); logger != nil {
		logger.Debug(msg, fields...)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return apperrors.NewInvalidInputError("request body is required")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return apperrors.NewInvalidInputError("invalid JSON body")
	}
	return nil
}

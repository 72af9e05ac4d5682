package session

import (
	"context"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/deshgyan/deshgyan/internal/history"
	"github.com/deshgyan/deshgyan/internal/prefs"
)

// AppOptions configures NewAppSession.
type AppOptions struct {
	HistoryCapacity int
	DefaultTheme    prefs.Theme
	Logger          *logging.Logger
}

// AppSession bundles the per-user state a front end needs: the theme
// preference, the recent queries and a search controller.
type AppSession struct {
	Themes     *prefs.Themes
	Recent     *history.Recent
	Controller *Controller
}

// NewAppSession loads persisted preferences from store and wires a
// controller around streamer.
func NewAppSession(ctx context.Context, store prefs.Store, streamer Streamer, opts AppOptions) *AppSession {
	recent := history.Load(ctx, store, opts.HistoryCapacity)
	return &AppSession{
		Themes:     &prefs.Themes{Store: store, Default: opts.DefaultTheme},
		Recent:     recent,
		Controller: NewController(streamer, recent, opts.Logger),
	}
}

// WithController returns a copy sharing the theme and recent stores but with
// a fresh controller, for surfaces that run one session per connection.
func (a *AppSession) WithController(streamer Streamer, logger *logging.Logger) *AppSession {
	return &AppSession{
		Themes:     a.Themes,
		Recent:     a.Recent,
		Controller: NewController(streamer, a.Recent, logger),
	}
}

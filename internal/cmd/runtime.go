package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/ailink/prompt"
	"github.com/deshgyan/deshgyan/internal/catalog"
	"github.com/deshgyan/deshgyan/internal/config"
	"github.com/deshgyan/deshgyan/internal/core/quota"
	"github.com/deshgyan/deshgyan/internal/core/store"
	"github.com/deshgyan/deshgyan/internal/prefs"
	"github.com/deshgyan/deshgyan/internal/session"
)

// appRuntime holds everything a search front end needs, built from config.
type appRuntime struct {
	cfg     *config.Config
	store   *store.Store
	service *ailink.Service
	catalog *catalog.Catalog
	session *session.AppSession

	closeOnce sync.Once
	closeErr  error
}

// newAppRuntime opens the store and wires the search service, the topic
// catalog and a session around it. Callers must Close the runtime.
func newAppRuntime(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*appRuntime, error) {
	db, err := openStoreWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rt := &appRuntime{cfg: cfg, store: db}
	if err := rt.wire(ctx, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *appRuntime) wire(ctx context.Context, logger *logging.Logger) error {
	cfg := rt.cfg

	prompts, err := prompt.LoadRegistry(cfg.AILink.PromptsDir)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	limiter := &quota.Limiter{Store: rt.store}
	limiter.ApplyOverrides(cfg.RateLimits)
	limiter.ApplySafetyMargin(cfg.RateLimitMargin)

	rt.service = &ailink.Service{
		Providers: ailink.NewRegistry(cfg.AILink),
		Prompts:   prompts,
		Cache:     rt.store,
		Limiter:   limiter,
		Options: ailink.Options{
			PromptSlug:    cfg.Search.PromptSlug,
			Role:          cfg.Search.Role,
			Model:         cfg.Search.Model,
			Timeout:       cfg.Search.Timeout,
			CacheTTL:      cfg.AILink.CacheTTL,
			Cooldown:      cfg.Search.Cooldown,
			ImagesEnabled: cfg.Search.ImagesEnabled,
			ImageRole:     cfg.Search.ImageRole,
		},
		Logger: logger,
	}

	rt.catalog, err = catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	theme, err := prefs.ParseTheme(cfg.UI.DefaultTheme)
	if err != nil {
		theme = prefs.ThemeLight
	}
	rt.session = session.NewAppSession(ctx, rt.store, rt.service, session.AppOptions{
		HistoryCapacity: cfg.History.Capacity,
		DefaultTheme:    theme,
		Logger:          logger,
	})
	return nil
}

// Close stops the session controller and releases the store. Safe to call
// more than once.
func (rt *appRuntime) Close() error {
	if rt == nil || rt.store == nil {
		return nil
	}
	rt.closeOnce.Do(func() {
		if rt.session != nil && rt.session.Controller != nil {
			rt.session.Controller.Close()
		}
		rt.closeErr = rt.store.Close()
	})
	return rt.closeErr
}

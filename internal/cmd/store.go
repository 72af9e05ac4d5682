package cmd

import (
	"context"

	"github.com/deshgyan/deshgyan/internal/config"
	"github.com/deshgyan/deshgyan/internal/core/store"
)

func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	return openStoreWithConfig(ctx, cfg)
}

func openStoreWithConfig(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

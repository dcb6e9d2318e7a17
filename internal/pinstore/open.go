package pinstore

import (
	"context"
	"fmt"

	"github.com/Its-donkey/dynamix-mint/internal/config"
	"github.com/Its-donkey/dynamix-mint/logging"
)

// Open builds the store selected by cfg.Store and ensures its schema.
func Open(ctx context.Context, cfg config.UploadServerConfig, logger *logging.Logger) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Store {
	case config.StoreMemory, "":
		store = NewMemoryStore()
	case config.StoreBadger:
		store, err = OpenBadger(ctx, cfg.BadgerDir, logger)
	case config.StorePostgres:
		store, err = OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

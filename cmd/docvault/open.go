package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/backend"
	"github.com/sagarc03/docvault/catalog"
	"github.com/sagarc03/docvault/config"
)

// openService opens the configured backend and catalog and wires them into a
// Service. The returned func closes both.
func openService(ctx context.Context, cfg *config.Config) (*docvault.Service, func(), error) {
	store, err := backend.Open(ctx, cfg.Backend())
	if err != nil {
		return nil, nil, fmt.Errorf("open backend: %w", err)
	}
	slog.Debug("opened backend", "kind", store.Kind(), "identity", store.Identity())

	var cat catalog.Store
	if cfg.Catalog.Enabled() {
		cat, err = catalog.Open(ctx, cfg.Catalog, store.Identity())
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		slog.Debug("opened catalog", "type", cfg.Catalog.Type)
	}

	closeAll := func() {
		if cat != nil {
			if err := cat.Close(); err != nil {
				slog.Warn("close catalog", "err", err)
			}
		}
		if err := store.Close(); err != nil {
			slog.Warn("close backend", "err", err)
		}
	}

	// a nil catalog.Store must stay a nil docvault.Catalog
	var index docvault.Catalog
	if cat != nil {
		index = cat
	}

	service, err := docvault.NewService(store, index, cfg.Service())
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	return service, closeAll, nil
}

// withService loads the config from ctx and runs fn against an open Service.
func withService(ctx context.Context, fn func(*config.Config, *docvault.Service) error) error {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	service, closeAll, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	return fn(cfg, service)
}

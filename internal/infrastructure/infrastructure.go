// Package infrastructure provides core service initialization for application startup.
// It assembles the shared dependencies (logging, storage, search index, metadata
// store, cache, token verification) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/lectern/internal/config"
	"github.com/JaimeStill/lectern/pkg/auth"
	"github.com/JaimeStill/lectern/pkg/cache"
	"github.com/JaimeStill/lectern/pkg/database"
	"github.com/JaimeStill/lectern/pkg/index"
	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/metastore"
	"github.com/JaimeStill/lectern/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Database is nil unless the metadata store uses the postgres provider.
// Cache is nil when no cache URL is configured. Verifier is nil in auth mode none.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Storage   storage.System
	Index     index.System
	Store     metastore.System
	Database  database.System
	Cache     cache.System
	Verifier  auth.Verifier
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Index:     index.New(&cfg.Index, logger),
	}

	var err error

	infra.Storage, err = storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	if cfg.UsesDatabase() {
		infra.Database, err = database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
	}

	infra.Store, err = metastore.New(&cfg.Store, infra.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("metastore init failed: %w", err)
	}

	if cfg.Cache.Enabled() {
		infra.Cache, err = cache.New(&cfg.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
	}

	infra.Verifier, err = auth.New(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth init failed: %w", err)
	}
	if infra.Verifier == nil {
		logger.Warn("auth mode none: admin routes are unauthenticated")
	}

	return infra, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// The database is registered before the metadata store that depends on it.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Index.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("index start failed: %w", err)
	}
	if err := i.Store.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("metastore start failed: %w", err)
	}
	if i.Cache != nil {
		if err := i.Cache.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("cache start failed: %w", err)
		}
	}
	return nil
}

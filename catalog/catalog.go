package catalog

import (
	"context"
	"fmt"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/catalog/postgres"
	"github.com/sagarc03/docvault/catalog/sqlite"
)

// Catalog types.
const (
	TypeNone     = "none"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Config holds the configuration for connecting to a catalog database.
type Config struct {
	// Type specifies the database type: "none", "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"omitempty,oneof=none sqlite postgres"`
	// DSN is the data source name (connection string)
	DSN    string          `mapstructure:"dsn"`
	Tables docvault.Tables `mapstructure:"tables"`
}

// Enabled reports whether a catalog database is configured.
func (c Config) Enabled() bool {
	return c.Type != "" && c.Type != TypeNone
}

// Store is a catalog with a connection to manage.
type Store interface {
	docvault.Catalog
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the configured database, runs migrations, validates the
// schema and scopes every row to scope, normally the backend identity.
func Open(ctx context.Context, cfg Config, scope string) (Store, error) {
	switch cfg.Type {
	case TypeSQLite:
		c, err := sqlite.Open(ctx, cfg.DSN, cfg.Tables, scope)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		return c, nil
	case TypePostgres:
		c, err := postgres.Open(ctx, cfg.DSN, cfg.Tables, scope)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("open catalog: unsupported database type: %q: %w", cfg.Type, docvault.ErrConfiguration)
	}
}

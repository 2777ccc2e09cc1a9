package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/docvault"
)

// Migrate creates the catalog tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables docvault.Tables) error {
	if err := createDocumentsTable(ctx, pool, tables.Documents); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Documents, err)
	}
	return nil
}

// DropTables removes the catalog tables.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables docvault.Tables) error {
	_, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{tables.Documents}.Sanitize()))
	if err != nil {
		return fmt.Errorf("migrate down %s: %w", tables.Documents, err)
	}
	return nil
}

func createDocumentsTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	uniqueName := pgx.Identifier{fmt.Sprintf("uq_%s_scope_name", tableName)}.Sanitize()
	indexUpdatedAt := pgx.Identifier{fmt.Sprintf("idx_%s_updated_at", tableName)}.Sanitize()

	// names compare byte-wise so cursors agree with Go string ordering
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			scope TEXT NOT NULL,
			name TEXT COLLATE "C" NOT NULL,
			content_type TEXT NOT NULL,
			etag TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT %s UNIQUE (scope, name)
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (scope, updated_at);
	`,
		quotedTable, uniqueName,
		indexUpdatedAt, quotedTable,
	)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

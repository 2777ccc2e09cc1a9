package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/docvault"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type tableMigration struct {
	tableName string
	up        func(ctx context.Context, db *sql.DB) error
	down      func(ctx context.Context, db *sql.DB) error
}

func getTableMigrations(tables docvault.Tables) []tableMigration {
	return []tableMigration{
		{
			tableName: tables.Documents,
			up:        createDocumentsTable(tables.Documents),
			down:      dropTable(tables.Documents),
		},
	}
}

// Migrate creates the catalog tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, tables docvault.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.tableName, err)
		}
	}

	return nil
}

// DropTables removes the catalog tables in reverse migration order.
func DropTables(ctx context.Context, db *sql.DB, tables docvault.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].tableName, err)
		}
	}

	return nil
}

func createDocumentsTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexUpdatedAt := quoteIdentifier(fmt.Sprintf("idx_%s_updated_at", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				scope TEXT NOT NULL,
				name TEXT NOT NULL,
				content_type TEXT NOT NULL,
				etag TEXT NOT NULL,
				size_bytes INTEGER NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE (scope, name)
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (scope, updated_at)
		`, indexUpdatedAt, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index updated_at: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName)))
		return err
	}
}

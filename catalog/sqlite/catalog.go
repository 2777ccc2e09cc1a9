// Package sqlite implements the document catalog on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/docvault"

	_ "modernc.org/sqlite" // SQLite driver
)

// Catalog indexes the documents of one backend scope.
type Catalog struct {
	db        *sql.DB
	tableName string
	scope     string
}

// Open connects to SQLite, runs migrations and validates the schema.
func Open(ctx context.Context, dsn string, tables docvault.Tables, scope string) (*Catalog, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("open sqlite catalog: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite catalog: %w", err)
	}
	// SQLite serializes writers anyway, and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err = Migrate(ctx, db, tables); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	if err = ValidateSchema(ctx, db, tables); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("validate sqlite schema: %w", err)
	}

	return New(db, tables, scope)
}

// New wraps an already migrated database.
func New(db *sql.DB, tables docvault.Tables, scope string) (*Catalog, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new sqlite catalog: %w", err)
	}
	if scope == "" {
		return nil, fmt.Errorf("new sqlite catalog: scope is required: %w", docvault.ErrConfiguration)
	}

	return &Catalog{db: db, tableName: quoteIdentifier(tables.Documents), scope: scope}, nil
}

// Ping verifies the database connection is alive.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) Get(ctx context.Context, name string) (docvault.Record, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, name, content_type, etag, size_bytes, created_at, updated_at
		FROM %s
		WHERE scope = ? AND name = ?`, c.tableName)

	rec, err := scanRecord(c.db.QueryRowContext(ctx, query, c.scope, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docvault.Record{}, fmt.Errorf("get: %w", docvault.ErrNotFound)
		}
		return docvault.Record{}, fmt.Errorf("get: %w", err)
	}

	return rec, nil
}

func (c *Catalog) Upsert(ctx context.Context, info docvault.Info) (docvault.Record, bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return docvault.Record{}, false, fmt.Errorf("upsert: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID, createdAt string
	checkQuery := fmt.Sprintf(`SELECT id, created_at FROM %s WHERE scope = ? AND name = ?`, c.tableName) //nolint:gosec // table name is validated
	err = tx.QueryRowContext(ctx, checkQuery, c.scope, info.Name).Scan(&existingID, &createdAt)
	isInsert := errors.Is(err, sql.ErrNoRows)
	if err != nil && !isInsert {
		return docvault.Record{}, false, fmt.Errorf("upsert: check existing: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	if isInsert {
		existingID = uuid.New().String()
		createdAt = now

		insertQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`INSERT INTO %s (id, scope, name, content_type, etag, size_bytes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, c.tableName)

		if _, err = tx.ExecContext(ctx, insertQuery,
			existingID, c.scope, info.Name, info.ContentType, info.ETag, info.Size, now, now,
		); err != nil {
			return docvault.Record{}, false, fmt.Errorf("upsert: insert: %w", err)
		}
	} else {
		updateQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`UPDATE %s
			SET content_type = ?, etag = ?, size_bytes = ?, updated_at = ?
			WHERE id = ?`, c.tableName)

		if _, err = tx.ExecContext(ctx, updateQuery,
			info.ContentType, info.ETag, info.Size, now, existingID,
		); err != nil {
			return docvault.Record{}, false, fmt.Errorf("upsert: update: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return docvault.Record{}, false, fmt.Errorf("upsert: commit: %w", err)
	}

	rec := docvault.Record{
		Info: docvault.Info{
			Name:        info.Name,
			Size:        info.Size,
			ETag:        info.ETag,
			ContentType: info.ContentType,
		},
	}
	rec.ID, _ = uuid.Parse(existingID)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, now)
	rec.LastModified = rec.UpdatedAt

	return rec, isInsert, nil
}

func (c *Catalog) Delete(ctx context.Context, name string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE scope = ? AND name = ?`, c.tableName) //nolint:gosec // table name is validated

	result, err := c.db.ExecContext(ctx, query, c.scope, name)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete: %w", docvault.ErrNotFound)
	}

	return nil
}

// List returns one page of records ordered by name. The prefix match is
// case-sensitive.
func (c *Catalog) List(ctx context.Context, q docvault.ListQuery) (docvault.ListResult, error) {
	after, err := docvault.DecodeCursor(q.Cursor)
	if err != nil {
		return docvault.ListResult{}, fmt.Errorf("list: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT id, name, content_type, etag, size_bytes, created_at, updated_at
		FROM %s
		WHERE scope = ? AND (? = '' OR instr(name, ?) = 1) AND name > ?
		ORDER BY name
		LIMIT ?
	`, c.tableName)

	rows, err := c.db.QueryContext(ctx, query, c.scope, q.Prefix, q.Prefix, after, limit+1)
	if err != nil {
		return docvault.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]docvault.Info, 0, limit)
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return docvault.ListResult{}, fmt.Errorf("list: %w", scanErr)
		}
		items = append(items, rec.Info)
	}

	if err := rows.Err(); err != nil {
		return docvault.ListResult{}, fmt.Errorf("list: rows: %w", err)
	}

	var nextCursor string
	if len(items) > limit {
		items = items[:limit]
		nextCursor = docvault.EncodeCursor(items[limit-1].Name)
	}

	return docvault.ListResult{Items: items, NextCursor: nextCursor}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (docvault.Record, error) {
	var (
		rec                         docvault.Record
		idStr, createdAt, updatedAt string
	)

	if err := row.Scan(&idStr, &rec.Name, &rec.ContentType, &rec.ETag, &rec.Size, &createdAt, &updatedAt); err != nil {
		return docvault.Record{}, err
	}

	var err error
	rec.ID, err = uuid.Parse(idStr)
	if err != nil {
		return docvault.Record{}, fmt.Errorf("parse uuid: %w", err)
	}

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return docvault.Record{}, fmt.Errorf("parse created_at: %w", err)
	}

	rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return docvault.Record{}, fmt.Errorf("parse updated_at: %w", err)
	}
	rec.LastModified = rec.UpdatedAt

	return rec, nil
}

// Package postgres implements the document catalog on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/docvault"
)

// Catalog indexes the documents of one backend scope.
type Catalog struct {
	pool      *pgxpool.Pool
	tableName string
	scope     string
	ownsPool  bool
}

// Open connects to PostgreSQL, runs migrations and validates the schema.
// Close releases the pool.
func Open(ctx context.Context, dsn string, tables docvault.Tables, scope string) (*Catalog, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("open postgres catalog: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w: %w", docvault.ErrConfiguration, err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = Migrate(ctx, pool, tables); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	if err = ValidateSchema(ctx, pool, tables); err != nil {
		pool.Close()
		return nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	c, err := New(pool, tables, scope)
	if err != nil {
		pool.Close()
		return nil, err
	}
	c.ownsPool = true

	return c, nil
}

// New wraps a pool whose schema is already migrated. Close leaves the pool open.
func New(pool *pgxpool.Pool, tables docvault.Tables, scope string) (*Catalog, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new postgres catalog: %w", err)
	}
	if scope == "" {
		return nil, fmt.Errorf("new postgres catalog: scope is required: %w", docvault.ErrConfiguration)
	}

	return &Catalog{pool: pool, tableName: pgx.Identifier{tables.Documents}.Sanitize(), scope: scope}, nil
}

// Ping verifies database connectivity
func (c *Catalog) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Catalog) Close() error {
	if c.ownsPool {
		c.pool.Close()
	}
	return nil
}

func (c *Catalog) Get(ctx context.Context, name string) (docvault.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, name, content_type, etag, size_bytes, created_at, updated_at
		FROM %s
		WHERE scope = $1 AND name = $2
	`, c.tableName)

	rec, err := scanRecord(c.pool.QueryRow(ctx, query, c.scope, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return docvault.Record{}, fmt.Errorf("get: %w", docvault.ErrNotFound)
		}
		return docvault.Record{}, fmt.Errorf("get: %w", err)
	}

	return rec, nil
}

func (c *Catalog) Upsert(ctx context.Context, info docvault.Info) (docvault.Record, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (scope, name, content_type, etag, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scope, name) DO UPDATE
		SET content_type = EXCLUDED.content_type,
			etag = EXCLUDED.etag,
			size_bytes = EXCLUDED.size_bytes,
			updated_at = NOW()
		RETURNING id, name, content_type, etag, size_bytes, created_at, updated_at,
			(xmax = 0) AS inserted
	`, c.tableName)

	var (
		rec      docvault.Record
		inserted bool
	)

	err := c.pool.QueryRow(ctx, query, c.scope, info.Name, info.ContentType, info.ETag, info.Size).Scan(
		&rec.ID, &rec.Name, &rec.ContentType, &rec.ETag, &rec.Size, &rec.CreatedAt, &rec.UpdatedAt, &inserted,
	)
	if err != nil {
		return docvault.Record{}, false, fmt.Errorf("upsert: %w", err)
	}
	rec.LastModified = rec.UpdatedAt

	return rec, inserted, nil
}

func (c *Catalog) Delete(ctx context.Context, name string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE scope = $1 AND name = $2`, c.tableName)

	result, err := c.pool.Exec(ctx, query, c.scope, name)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete: %w", docvault.ErrNotFound)
	}

	return nil
}

// List returns one page of records ordered by name.
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
		WHERE scope = $1 AND name LIKE $2 || '%%' AND name > $3
		ORDER BY name
		LIMIT $4
	`, c.tableName)

	rows, err := c.pool.Query(ctx, query, c.scope, docvault.EscapeLikePattern(q.Prefix), after, limit+1)
	if err != nil {
		return docvault.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	items := make([]docvault.Info, 0, limit)
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return docvault.ListResult{}, fmt.Errorf("list: scan: %w", scanErr)
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

func scanRecord(row pgx.Row) (docvault.Record, error) {
	var rec docvault.Record
	if err := row.Scan(&rec.ID, &rec.Name, &rec.ContentType, &rec.ETag, &rec.Size, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return docvault.Record{}, err
	}
	rec.LastModified = rec.UpdatedAt
	return rec, nil
}

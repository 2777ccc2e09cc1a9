package e2e_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// sharedPostgres is one PostgreSQL container reused by every catalog test.
// Tests isolate themselves through unique document names.
type sharedPostgres struct {
	once sync.Once
	dsn  string
	pool *pgxpool.Pool
	err  error
}

var (
	postgresDB  sharedPostgres
	testCleanup func()
)

func getSharedPostgresDatabase(t *testing.T) string {
	t.Helper()

	postgresDB.once.Do(func() {
		ctx := context.Background()

		container, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("docvault"),
			pgcontainer.WithUsername("docvault"),
			pgcontainer.WithPassword("docvault"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			postgresDB.err = err
			return
		}

		testCleanup = func() {
			if postgresDB.pool != nil {
				postgresDB.pool.Close()
			}
			_ = testcontainers.TerminateContainer(container)
		}

		postgresDB.dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			postgresDB.err = err
			return
		}

		postgresDB.pool, postgresDB.err = pgxpool.New(ctx, postgresDB.dsn)
	})

	require.NoError(t, postgresDB.err, "start shared postgres")
	return postgresDB.dsn
}

// catalogRows counts catalog records for name across every scope.
func catalogRows(t *testing.T, name string) int {
	t.Helper()

	var count int
	err := postgresDB.pool.QueryRow(context.Background(),
		"SELECT count(*) FROM docvault_documents WHERE name = $1", name).Scan(&count)
	require.NoError(t, err)
	return count
}

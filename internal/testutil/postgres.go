// README: Test helpers for DB-backed tests. They skip unless
// GOHAPPYGO_TEST_DSN points at a disposable Postgres database.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"gohappygo/internal/infra"
)

const DSNEnv = "GOHAPPYGO_TEST_DSN"

// NewPostgres returns a migrated, emptied pool closed at test cleanup.
func NewPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skip(DSNEnv + " not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	pool, err := infra.NewDB(ctx, dsn, infra.DBOptions{MaxConns: 16})
	require.NoError(t, err, "connect db")
	t.Cleanup(pool.Close)

	_, err = infra.Migrate(ctx, pool)
	require.NoError(t, err, "apply migrations")

	_, err = pool.Exec(ctx, `TRUNCATE TABLE transactions, request_status_history, requests, demands, trips`)
	require.NoError(t, err, "truncate tables")
	return pool
}

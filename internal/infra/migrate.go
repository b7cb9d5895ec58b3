// README: Schema migrations (goose, embedded SQL) applied through the pgx pool.
package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"gohappygo/migrations"
)

type MigrationResult struct {
	Version int64
	Applied int
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) (MigrationResult, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("infra.Migrate: provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("infra.Migrate: up: %w", err)
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("infra.Migrate: version: %w", err)
	}
	return MigrationResult{Version: version, Applied: len(results)}, nil
}

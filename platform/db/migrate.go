package db

import (
	"context"
	"database/sql"
	"fmt"

	"territory_backend/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded schema migrations through the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	provider, sqlDB, err := newProvider(pool)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied version of the schema.
func MigrationVersion(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	provider, sqlDB, err := newProvider(pool)
	if err != nil {
		return 0, err
	}
	defer sqlDB.Close()
	return provider.GetDBVersion(ctx)
}

func newProvider(pool *pgxpool.Pool) (*goose.Provider, *sql.DB, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations.FS)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, sqlDB, nil
}

package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations
var migrations embed.FS

// MigratePostgres applies the embedded PostgreSQL migrations through the pool.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return migrate(ctx, goose.DialectPostgres, db, "migrations/postgres", logger)
}

// MigrateSQLite applies the embedded SQLite migrations.
func MigrateSQLite(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	return migrate(ctx, goose.DialectSQLite3, db, "migrations/sqlite", logger)
}

func migrate(ctx context.Context, dialect goose.Dialect, db *sql.DB, dir string, logger zerolog.Logger) error {
	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("failed to open migrations %s: %w", dir, err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to up migrations: %w", err)
	}

	for _, r := range results {
		logger.Info().
			Str("migration", r.Source.Path).
			Dur("duration", r.Duration).
			Msg("migration applied")
	}

	return nil
}

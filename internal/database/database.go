package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"promo-engine/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const applicationName = "promo-engine"

// NewPool creates the PostgreSQL pool behind the document store. Every session
// gets a statement_timeout and lock_timeout of writeTimeout, so a compare-and-swap
// UPDATE blocked on a row lock is cancelled by the server as well as the client.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, writeTimeout time.Duration, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := newPoolConfig(cfg, writeTimeout)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections).
		Dur("statement_timeout", writeTimeout).
		Msg("creating document store pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func newPoolConfig(cfg config.DatabaseConfig, writeTimeout time.Duration) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	params := poolConfig.ConnConfig.RuntimeParams
	params["application_name"] = applicationName
	if writeTimeout > 0 {
		ms := strconv.FormatInt(writeTimeout.Milliseconds(), 10)
		params["statement_timeout"] = ms
		params["lock_timeout"] = ms
	}

	return poolConfig, nil
}

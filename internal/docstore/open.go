package docstore

import (
	"context"
	"fmt"

	"promo-engine/internal/config"
	"promo-engine/internal/database"

	"github.com/rs/zerolog"
)

// Open builds the store selected by cfg.Store.Backend, applying migrations for
// the SQL backends, and bounds every call by cfg.Store.Timeout.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Store, error) {
	store, err := open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("backend", cfg.Store.Backend).
		Dur("timeout", cfg.Store.Timeout).
		Msg("document store ready")

	return WithTimeout(store, cfg.Store.Timeout), nil
}

func open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return NewMemoryStore(), nil

	case config.BackendFile:
		return NewFileStore(cfg.Store.FileDir, logger)

	case config.BackendSQLite:
		db, err := OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateSQLite(ctx, db, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
		}
		return NewSQLiteStore(db, logger), nil

	case config.BackendPostgres:
		pool, err := database.NewPool(ctx, cfg.Database, cfg.Store.Timeout, logger)
		if err != nil {
			return nil, err
		}
		if err := database.MigratePostgres(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		return &ownedStore{Store: NewPostgresStore(pool, logger), release: pool.Close}, nil

	case config.BackendRedis:
		client := NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Redis.Addr, err)
		}
		return NewRedisStore(client, cfg.Redis.Prefix, logger), nil

	case config.BackendS3:
		client, err := NewS3Client(ctx, cfg.S3.Region)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix, logger), nil

	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// ownedStore releases a resource the wrapped store does not own.
type ownedStore struct {
	Store
	release func()
}

func (s *ownedStore) Close() error {
	err := s.Store.Close()
	s.release()
	return err
}

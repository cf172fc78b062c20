package docstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// postgresStore keeps documents in the documents table (see internal/database/migrations).
type postgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a PostgreSQL-backed store. The caller owns the pool.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) Store {
	return &postgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "postgres-store").Logger(),
	}
}

// Get retrieves a document by key.
func (s *postgresStore) Get(ctx context.Context, key string) (Document, error) {
	query := `
		SELECT value, version
		FROM documents
		WHERE key = $1
	`

	var (
		value   []byte
		version int64
	)
	err := s.pool.QueryRow(ctx, query, key).Scan(&value, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		s.logger.Error().Err(err).Str("key", key).Msg("failed to query document")
		return Document{}, fmt.Errorf("failed to query document %s: %w", key, err)
	}

	return Document{Value: value, Version: strconv.FormatInt(version, 10)}, nil
}

// PutIfVersion inserts the document when version is empty, otherwise updates it
// only if the stored version matches.
func (s *postgresStore) PutIfVersion(ctx context.Context, key string, value []byte, version string) (string, error) {
	if version == "" {
		return s.insert(ctx, key, value)
	}

	expected, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return "", ErrVersionConflict
	}

	query := `
		UPDATE documents
		SET value = $2, version = version + 1, updated_at = NOW()
		WHERE key = $1 AND version = $3
		RETURNING version
	`

	var next int64
	err = s.pool.QueryRow(ctx, query, key, string(value), expected).Scan(&next)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug().Str("key", key).Str("version", version).Msg("document version conflict")
			return "", ErrVersionConflict
		}
		s.logger.Error().Err(err).Str("key", key).Msg("failed to update document")
		return "", fmt.Errorf("failed to update document %s: %w", key, err)
	}

	return strconv.FormatInt(next, 10), nil
}

func (s *postgresStore) insert(ctx context.Context, key string, value []byte) (string, error) {
	query := `
		INSERT INTO documents (key, value, version, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (key) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query, key, string(value))
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to insert document")
		return "", fmt.Errorf("failed to insert document %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrVersionConflict
	}

	return "1", nil
}

// Close is a no-op; the pool is closed by its owner.
func (s *postgresStore) Close() error {
	return nil
}

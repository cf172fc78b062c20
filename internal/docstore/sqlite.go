package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// sqliteStore keeps documents in a SQLite database through database/sql.
type sqliteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenSQLite opens (or creates) a SQLite database file for use by NewSQLiteStore.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSQLiteStore creates a store over an already migrated database.
func NewSQLiteStore(db *sql.DB, logger zerolog.Logger) Store {
	return &sqliteStore{
		db:     db,
		logger: logger.With().Str("component", "sqlite-store").Logger(),
	}
}

// Get retrieves a document by key.
func (s *sqliteStore) Get(ctx context.Context, key string) (Document, error) {
	query := `SELECT value, version FROM documents WHERE key = ?`

	var (
		value   []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		s.logger.Error().Err(err).Str("key", key).Msg("failed to query document")
		return Document{}, fmt.Errorf("failed to query document %s: %w", key, err)
	}

	return Document{Value: value, Version: strconv.FormatInt(version, 10)}, nil
}

// PutIfVersion inserts or conditionally updates the document.
func (s *sqliteStore) PutIfVersion(ctx context.Context, key string, value []byte, version string) (string, error) {
	var (
		res  sql.Result
		err  error
		next int64 = 1
	)

	if version == "" {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO documents (key, value, version, updated_at) VALUES (?, ?, 1, CURRENT_TIMESTAMP)
			 ON CONFLICT (key) DO NOTHING`,
			key, value)
	} else {
		expected, parseErr := strconv.ParseInt(version, 10, 64)
		if parseErr != nil {
			return "", ErrVersionConflict
		}
		next = expected + 1
		res, err = s.db.ExecContext(ctx,
			`UPDATE documents SET value = ?, version = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE key = ? AND version = ?`,
			value, next, key, expected)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to write document")
		return "", fmt.Errorf("failed to write document %s: %w", key, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to read affected rows for %s: %w", key, err)
	}
	if affected == 0 {
		s.logger.Debug().Str("key", key).Str("version", version).Msg("document version conflict")
		return "", ErrVersionConflict
	}

	return strconv.FormatInt(next, 10), nil
}

// Close closes the database.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/rs/zerolog"
)

var fileKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// fileStore keeps one JSON file per key in a directory. The version of a
// document is the hash of its content. Compare-and-swap is only safe within a
// single process.
type fileStore struct {
	dir    string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewFileStore creates a file-backed store rooted at dir, creating it if needed.
func NewFileStore(dir string, logger zerolog.Logger) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}

	logger = logger.With().Str("component", "file-store").Logger()
	logger.Info().Str("dir", dir).Msg("file store initialised")

	return &fileStore{dir: dir, logger: logger}, nil
}

func (s *fileStore) path(key string) (string, error) {
	if !fileKeyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid document key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Get reads the document file.
func (s *fileStore) Get(ctx context.Context, key string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	path, err := s.path(key)
	if err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(path)
}

func (s *fileStore) read(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, ErrNotFound
		}
		s.logger.Error().Err(err).Str("file", path).Msg("failed to read document file")
		return Document{}, fmt.Errorf("failed to read document file %s: %w", path, err)
	}
	return Document{Value: data, Version: contentVersion(data)}, nil
}

// PutIfVersion writes value to a temporary file and renames it over the
// document, so readers see either the old or the new content.
func (s *fileStore) PutIfVersion(ctx context.Context, key string, value []byte, version string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(path)
	switch {
	case errors.Is(err, ErrNotFound):
		if version != "" {
			return "", ErrVersionConflict
		}
	case err != nil:
		return "", err
	case current.Version != version:
		return "", ErrVersionConflict
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file for %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync temp file for %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file for %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		s.logger.Error().Err(err).Str("file", path).Msg("failed to replace document file")
		return "", fmt.Errorf("failed to replace document file %s: %w", path, err)
	}

	s.logger.Debug().Str("key", key).Int("bytes", len(value)).Msg("document written")

	return contentVersion(value), nil
}

// Close is a no-op.
func (s *fileStore) Close() error {
	return nil
}

func contentVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// Package docstore is a versioned key/value store for whole JSON documents.
//
// Every backend supports compare-and-swap writes: PutIfVersion only succeeds
// when the stored version still equals the version the caller read. An empty
// version means the document must not exist yet.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key has never been written.
	ErrNotFound = errors.New("document not found")

	// ErrVersionConflict is returned by PutIfVersion when the stored version changed.
	ErrVersionConflict = errors.New("document version conflict")
)

// Document is a stored value together with the version it was read at.
type Document struct {
	Value   []byte
	Version string
}

// Store defines the persistence primitives the redemption engine relies on.
type Store interface {
	// Get returns the current value and version of key.
	Get(ctx context.Context, key string) (Document, error)

	// PutIfVersion replaces the value of key if its version still equals version
	// and returns the new version. Writes are all-or-nothing.
	PutIfVersion(ctx context.Context, key string, value []byte, version string) (string, error)

	// Close releases resources held by the store.
	Close() error
}

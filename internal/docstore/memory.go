package docstore

import (
	"context"
	"strconv"
	"sync"
)

// memoryStore keeps documents in process memory. Versions are a per-key counter.
type memoryStore struct {
	mu   sync.Mutex
	docs map[string]memoryDoc
}

type memoryDoc struct {
	value   []byte
	version int64
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() Store {
	return &memoryStore{docs: make(map[string]memoryDoc)}
}

// Get returns a copy of the stored value.
func (s *memoryStore) Get(ctx context.Context, key string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{
		Value:   append([]byte(nil), doc.value...),
		Version: strconv.FormatInt(doc.version, 10),
	}, nil
}

// PutIfVersion stores a copy of value when version matches.
func (s *memoryStore) PutIfVersion(ctx context.Context, key string, value []byte, version string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.docs[key]
	switch {
	case version == "" && exists:
		return "", ErrVersionConflict
	case version != "" && (!exists || strconv.FormatInt(doc.version, 10) != version):
		return "", ErrVersionConflict
	}

	next := memoryDoc{value: append([]byte(nil), value...), version: doc.version + 1}
	s.docs[key] = next
	return strconv.FormatInt(next.version, 10), nil
}

// Close is a no-op.
func (s *memoryStore) Close() error {
	return nil
}

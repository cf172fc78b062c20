package docstore

import (
	"context"
	"time"
)

// timeoutStore bounds every call to the wrapped store.
type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout wraps store so that each Get and PutIfVersion runs with its own
// deadline. A non-positive timeout returns store unchanged.
func WithTimeout(store Store, timeout time.Duration) Store {
	if timeout <= 0 {
		return store
	}
	return &timeoutStore{next: store, timeout: timeout}
}

func (s *timeoutStore) Get(ctx context.Context, key string) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Get(ctx, key)
}

func (s *timeoutStore) PutIfVersion(ctx context.Context, key string, value []byte, version string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.PutIfVersion(ctx, key, value, version)
}

func (s *timeoutStore) Close() error {
	return s.next.Close()
}

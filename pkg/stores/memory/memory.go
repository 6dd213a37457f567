package memory

import (
	"context"
	"sync"

	"github.com/spindlework/a2ahost/pkg/stores"
)

/*
Store is the in-memory Storage backend.  It keeps value copies so callers
can never alias the stored bytes, and serves single-key operations under a
plain RWMutex, which satisfies the atomic-per-key contract trivially.
*/
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewStore() *Store {
	return &Store{
		values: make(map[string][]byte),
	}
}

func (store *Store) Read(ctx context.Context, keys []string) (map[string][]byte, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	result := make(map[string][]byte, len(keys))

	for _, key := range keys {
		value, ok := store.values[key]

		if !ok {
			continue
		}

		buf := make([]byte, len(value))
		copy(buf, value)
		result[key] = buf
	}

	if len(result) == 0 && len(keys) > 0 {
		return result, stores.ErrNotFound
	}

	return result, nil
}

func (store *Store) Write(ctx context.Context, pairs map[string][]byte) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for key, value := range pairs {
		buf := make([]byte, len(value))
		copy(buf, value)
		store.values[key] = buf
	}

	return nil
}

func (store *Store) Delete(ctx context.Context, keys []string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, key := range keys {
		delete(store.values, key)
	}

	return nil
}

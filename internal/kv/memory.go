package kv

import (
	"sync"

	"ideas-go/internal/ideas"
)

// MemoryStore is an in-memory key/value store, useful for testing and for a
// session that should not outlive the process.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Compile-time check that MemoryStore implements ideas.KeyValueStore interface
var _ ideas.KeyValueStore = (*MemoryStore)(nil)

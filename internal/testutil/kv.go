package testutil

import (
	"errors"
	"sync"

	"ideas-go/internal/ideas"
	"ideas-go/internal/kv"
)

// ErrStorage is returned by a BrokenStore.
var ErrStorage = errors.New("storage unavailable")

// NewKV returns an empty in-memory key/value store.
func NewKV() *kv.MemoryStore {
	return kv.NewMemoryStore()
}

// BrokenStore wraps a store and fails every call while broken.
type BrokenStore struct {
	ideas.KeyValueStore

	mu     sync.Mutex
	broken bool
}

// NewBrokenStore wraps an empty in-memory store.
func NewBrokenStore() *BrokenStore {
	return &BrokenStore{KeyValueStore: kv.NewMemoryStore()}
}

// Break makes every following call fail with ErrStorage.
func (s *BrokenStore) Break(broken bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken = broken
}

func (s *BrokenStore) isBroken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broken
}

func (s *BrokenStore) Get(key string) (string, bool, error) {
	if s.isBroken() {
		return "", false, ErrStorage
	}
	return s.KeyValueStore.Get(key)
}

func (s *BrokenStore) Set(key, value string) error {
	if s.isBroken() {
		return ErrStorage
	}
	return s.KeyValueStore.Set(key, value)
}

func (s *BrokenStore) Delete(key string) error {
	if s.isBroken() {
		return ErrStorage
	}
	return s.KeyValueStore.Delete(key)
}

package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ideas-go/internal/ideas"
)

// FileSystemStore keeps one file per key under a root directory:
//
//	<root>/
//	  <key>    (value, written atomically)
//
// Values survive process restarts. This implementation is safe for
// concurrent use within a process.
type FileSystemStore struct {
	root string
	mu   sync.Mutex
}

// NewFileSystemStore creates a store rooted at root, creating it if needed.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

func (s *FileSystemStore) Get(key string) (string, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return string(data), true, nil
}

func (s *FileSystemStore) Set(key, value string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFile(path, value)
}

func (s *FileSystemStore) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Root returns the directory holding the values.
func (s *FileSystemStore) Root() string {
	return s.root
}

func (s *FileSystemStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".tmp-") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.root, key), nil
}

// writeFile writes value to destPath using atomic write (temp file + rename).
func writeFile(destPath, value string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.WriteString(value); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemStore implements ideas.KeyValueStore interface
var _ ideas.KeyValueStore = (*FileSystemStore)(nil)

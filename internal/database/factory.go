package database

import (
	"fmt"
	"os"
	"path/filepath"

	"ideas-go/internal/config"
	"ideas-go/internal/ideas"
)

// DatabaseFile is the file name of the SQLite remote inside its data dir.
const DatabaseFile = "ideas.db"

// NewBackendFromConfig creates a SQLite backend based on the remote config type.
func NewBackendFromConfig(cfg config.RemoteConfig, clock ideas.Clock, ids ideas.IDGenerator) (*SQLiteBackend, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite remote")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return NewSQLiteBackend(filepath.Join(cfg.DataDir, DatabaseFile), clock, ids)
	case "memory":
		return NewSQLiteBackend(":memory:", clock, ids)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

package kv

import (
	"fmt"
	"path/filepath"

	"ideas-go/internal/config"
	"ideas-go/internal/ideas"
)

// NewStoreFromConfig creates a KeyValueStore based on the state config type.
// scope names the subdirectory used by the filesystem store, e.g. "device"
// or "sessions/<id>".
func NewStoreFromConfig(cfg config.StateConfig, scope string) (ideas.KeyValueStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.StateDir == "" {
			return nil, fmt.Errorf("filesystem state requires state_dir to be set")
		}
		return NewFileSystemStore(filepath.Join(cfg.StateDir, filepath.FromSlash(scope)))
	default:
		return nil, fmt.Errorf("unknown state type: %s", cfg.Type)
	}
}

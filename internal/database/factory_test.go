package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ideas-go/internal/config"
)

func TestNewBackendFromConfig(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		got, err := NewBackendFromConfig(config.RemoteConfig{Type: "memory"}, nil, nil)
		if err != nil {
			t.Fatalf("NewBackendFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if err := got.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() = %v, want schema applied", err)
		}
	})

	t.Run("sqlite database", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		got, err := NewBackendFromConfig(config.RemoteConfig{Type: "sqlite", DataDir: dir}, nil, nil)
		if err != nil {
			t.Fatalf("NewBackendFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if got.Path() != filepath.Join(dir, DatabaseFile) {
			t.Errorf("Path() = %q", got.Path())
		}
		if _, err := os.Stat(got.Path()); err != nil {
			t.Errorf("database file not created: %v", err)
		}
		if err := got.Ping(context.Background()); err != nil {
			t.Errorf("Ping() = %v", err)
		}
	})

	t.Run("sqlite database without data_dir", func(t *testing.T) {
		got, err := NewBackendFromConfig(config.RemoteConfig{Type: "sqlite"}, nil, nil)
		if err == nil {
			t.Error("NewBackendFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewBackendFromConfig() should return nil on error")
			got.Close()
		}
	})

	t.Run("unknown database type", func(t *testing.T) {
		got, err := NewBackendFromConfig(config.RemoteConfig{Type: "unknown"}, nil, nil)
		if err == nil {
			t.Error("NewBackendFromConfig() expected error for unknown type, got nil")
		}
		if got != nil {
			t.Error("NewBackendFromConfig() should return nil on error")
			got.Close()
		}
	})
}

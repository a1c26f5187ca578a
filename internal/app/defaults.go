package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// GetDefaults returns the paths and session the CLI runs with. Each entry can
// be overridden from the environment:
//
//	IDEAS_CONFIG_PATH  config file      (~/.config/ideas.toml)
//	IDEAS_HOME         data directory   (~/.local/share/ideas)
//	IDEAS_SESSION      failure-count session (the parent process ID)
func GetDefaults() (map[string]string, error) {
	home, err := os.UserHomeDir()
	if err != nil && (os.Getenv("IDEAS_CONFIG_PATH") == "" || os.Getenv("IDEAS_HOME") == "") {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	baseDir := envOr("IDEAS_HOME", filepath.Join(home, ".local", "share", "ideas"))
	return map[string]string{
		"config_path": envOr("IDEAS_CONFIG_PATH", filepath.Join(home, ".config", "ideas.toml")),
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"session":     getSession(),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getSession names the session whose failure count the tracker keeps. Every
// command run from the same shell shares the shell's session.
func getSession() string {
	return envOr("IDEAS_SESSION", "ppid-"+strconv.Itoa(os.Getppid()))
}

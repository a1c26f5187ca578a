package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for ideas.
type Config struct {
	BaseDir      string             `toml:"base_dir"`
	LogDir       string             `toml:"log_dir"`
	User         UserConfig         `toml:"user"`
	Remote       RemoteConfig       `toml:"remote"`
	State        StateConfig        `toml:"state"`
	Failover     FailoverConfig     `toml:"failover"`
	Connectivity ConnectivityConfig `toml:"connectivity"`
	Fallback     FallbackConfig     `toml:"fallback"`
	Telemetry    TelemetryConfig    `toml:"telemetry"`
	Encryption   EncryptionConfig   `toml:"encryption"`
}

// UserConfig is the identity the CLI acts as.
type UserConfig struct {
	ID           string `toml:"id"`
	Email        string `toml:"email"`
	Name         string `toml:"name"`
	DefaultGroup string `toml:"default_group,omitempty"`
}

// RemoteConfig represents configuration for the remote backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "sqlite", "memory", or "s3"

	// SQLite-specific fields (only used when Type == "sqlite")
	DataDir string `toml:"data_dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3PathStyle bool   `toml:"s3_path_style,omitempty"`
	Encrypted   bool   `toml:"encrypted,omitempty"` // age-encrypt documents at rest

	// Timeout bounds each remote call. Zero means no limit.
	Timeout Duration `toml:"timeout"`
}

// StateConfig represents configuration for the session and device key/value stores.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StateConfig struct {
	Type     string `toml:"type"`                // "memory" or "filesystem"
	StateDir string `toml:"state_dir,omitempty"` // only used for type=filesystem
}

// FailoverConfig controls when the remote backend is abandoned.
type FailoverConfig struct {
	Threshold         int  `toml:"threshold"`
	SingleStrikeReads bool `toml:"single_strike_reads"`
	ResetOnSuccess    bool `toml:"reset_on_success"`
}

// ConnectivityConfig configures the network probe.
type ConnectivityConfig struct {
	ProbeAddress string   `toml:"probe_address"` // host:port; empty disables probing
	Timeout      Duration `toml:"timeout"`
	Interval     Duration `toml:"interval"` // how often `ideas serve` re-probes
}

// FallbackConfig configures the in-memory dataset.
type FallbackConfig struct {
	Latency Duration `toml:"latency"`
}

// TelemetryConfig configures metrics and error reporting.
type TelemetryConfig struct {
	MetricsAddress string `toml:"metrics_address,omitempty"`
	SentryDSN      string `toml:"sentry_dsn,omitempty"`
	Environment    string `toml:"environment,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// Duration is a time.Duration written as a string ("5s") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// NewConfig creates a new Config with the provided identity and defaults
// rooted at baseDir.
func NewConfig(user UserConfig, baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		User:    user,
		Remote: RemoteConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
			Timeout: Duration{10 * time.Second},
		},
		State: StateConfig{
			Type:     "filesystem",
			StateDir: filepath.Join(baseDir, "state"),
		},
		Failover: FailoverConfig{
			Threshold:         3,
			SingleStrikeReads: true,
		},
		Connectivity: ConnectivityConfig{
			Timeout:  Duration{2 * time.Second},
			Interval: Duration{30 * time.Second},
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "ideas.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "ideas.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

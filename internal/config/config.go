// Package config handles labelsweep configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/labelsweep/config.yaml,
// /etc/labelsweep/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "labelsweep", "config.yaml"))
	}

	paths = append(paths, "/etc/labelsweep/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all labelsweep configuration.
type Config struct {
	// Email is the account address, used as the IMAP login username.
	Email string `yaml:"email"`

	// Password is the IMAP login password. For Gmail accounts with 2FA
	// this must be an app password, not the account password. Supports
	// environment variable expansion (e.g., ${GMAIL_APP_PASSWORD}).
	Password string `yaml:"password"`

	// Host is the IMAP server hostname. Default: imap.gmail.com.
	Host string `yaml:"host"`

	// Port is the IMAP server port. Default: 993 (IMAPS).
	Port int `yaml:"port"`

	// Workers is the archival worker pool width. Kept deliberately
	// small by default (3) to stay under Gmail's connection and
	// command rate limits.
	Workers int `yaml:"workers"`

	// MaxRetries is the number of retries after a failed first
	// attempt when archiving a single message. Default: 3.
	MaxRetries int `yaml:"max_retries"`

	// BackoffSec is the base backoff in seconds between retry
	// attempts; retry i waits 2^i times this long. Default: 1.
	BackoffSec int `yaml:"backoff_sec"`

	// BatchSize is the slice size for batched mutations (mark-read
	// pass, trash deletion). Default: 25.
	BatchSize int `yaml:"batch_size"`

	// AllMail overrides archive folder discovery with a fixed mailbox
	// name. Leave empty to discover it from the server's LIST response.
	AllMail string `yaml:"all_mail"`

	// CheckIntervalSec is the pause between trash cleaning passes in
	// watch mode, in seconds. Default: 300.
	CheckIntervalSec int `yaml:"check_interval_sec"`

	// Journal is the path of the sqlite sweep journal. Empty selects
	// ~/.local/state/labelsweep/sweeps.db.
	Journal string `yaml:"journal"`

	// LogLevel controls slog verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables so secrets can stay out of the file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "imap.gmail.com"
	}
	if c.Port == 0 {
		c.Port = 993
	}
	if c.Workers == 0 {
		c.Workers = 3
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffSec == 0 {
		c.BackoffSec = 1
	}
	if c.BatchSize == 0 {
		c.BatchSize = 25
	}
	if c.CheckIntervalSec == 0 {
		c.CheckIntervalSec = 300
	}
}

// Validate checks that the configuration is internally consistent.
// Returns an error describing the first problem found.
func (c *Config) Validate() error {
	if c.Email == "" {
		return fmt.Errorf("email is required")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range (1-65535)", c.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1 (got %d)", c.Workers)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative (got %d)", c.MaxRetries)
	}
	if c.BackoffSec < 0 {
		return fmt.Errorf("backoff_sec must not be negative (got %d)", c.BackoffSec)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1 (got %d)", c.BatchSize)
	}
	return nil
}

// Backoff returns the retry backoff base as a duration.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.BackoffSec) * time.Second
}

// CheckInterval returns the trash watch interval as a duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSec) * time.Second
}

// JournalPath returns the sweep journal location, falling back to the
// per-user state directory when unset.
func (c *Config) JournalPath() (string, error) {
	if c.Journal != "" {
		return c.Journal, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve journal path: %w", err)
	}
	return filepath.Join(home, ".local", "state", "labelsweep", "sweeps.db"), nil
}

package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/altocloud-labs/icloud-cli/internal/auth"
	"github.com/altocloud-labs/icloud-cli/internal/transport"
)

const configFile = "config.toml"

// Config is the on-disk client configuration.
type Config struct {
	// Timezone is the IANA zone sent with service calls (usertz).
	Timezone string `toml:"timezone"`

	// RequestTimeout bounds a single HTTP request.
	RequestTimeout time.Duration `toml:"request_timeout"`

	Auth  AuthConfig  `toml:"auth"`
	Retry RetryConfig `toml:"retry"`
}

// AuthConfig holds the authentication endpoints and freshness window.
// The endpoints are overridable for testing against a stub server.
type AuthConfig struct {
	AuthEndpoint    string        `toml:"auth_endpoint"`
	SetupEndpoint   string        `toml:"setup_endpoint"`
	FreshnessWindow time.Duration `toml:"freshness_window"`
}

// RetryConfig holds the backoff policy tunables.
type RetryConfig struct {
	BaseDelay   time.Duration `toml:"base_delay"`
	MaxDelay    time.Duration `toml:"max_delay"`
	MaxAttempts int           `toml:"max_attempts"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Timezone:       "UTC",
		RequestTimeout: transport.DefaultTimeout,
		Auth: AuthConfig{
			AuthEndpoint:    auth.DefaultAuthEndpoint,
			SetupEndpoint:   auth.DefaultSetupEndpoint,
			FreshnessWindow: auth.DefaultFreshnessWindow,
		},
		Retry: RetryConfig{
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    10 * time.Second,
			MaxAttempts: 3,
		},
	}
}

// withDefaults fills zero fields so a partial config file still yields
// a usable configuration.
func (c Config) withDefaults() Config {
	d := Default()
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.Auth.AuthEndpoint == "" {
		c.Auth.AuthEndpoint = d.Auth.AuthEndpoint
	}
	if c.Auth.SetupEndpoint == "" {
		c.Auth.SetupEndpoint = d.Auth.SetupEndpoint
	}
	if c.Auth.FreshnessWindow <= 0 {
		c.Auth.FreshnessWindow = d.Auth.FreshnessWindow
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = d.Retry.BaseDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = d.Retry.MaxDelay
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	return c
}

// ConfigStore reads and writes the TOML config file.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
}

// NewConfigStore creates a config store rooted at dir.
// If dir is empty, defaults to ~/.icloud.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".icloud")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &ConfigStore{filePath: filepath.Join(dir, configFile)}, nil
}

// Load reads the configuration, applying defaults for anything the
// file omits. A missing file yields the full default configuration.
func (s *ConfigStore) Load() (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	return cfg.withDefaults(), nil
}

// Save persists the configuration with restricted permissions.
func (s *ConfigStore) Save(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

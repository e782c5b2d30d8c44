// ABOUTME: Configuration loading and parsing for the races service
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when no --config flag is given
const EnvConfigPath = "RACES_CONFIG"

// DefaultConfigPath is used when neither the flag nor the environment names a file
const DefaultConfigPath = "config.yaml"

const (
	defaultExtension   = "yaml"
	defaultPolarTO     = 5 * time.Second
	defaultPolarTTL    = 10 * time.Minute
	defaultMetricsPath = "/metrics"
	minJWTSecretLen    = 32
)

// Config represents the complete races service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Polars    PolarsConfig    `yaml:"polars" toml:"polars"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
}

// ServerConfig holds the HTTP listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// StorageConfig locates the active and archived race directories
type StorageConfig struct {
	RacesDir    string `yaml:"races_dir" toml:"races_dir"`
	ArchivedDir string `yaml:"archived_dir" toml:"archived_dir"`
	Extension   string `yaml:"extension" toml:"extension"`
}

// PolarsConfig configures the boat lookup service
type PolarsConfig struct {
	URL      string        `yaml:"url" toml:"url"`
	Timeout  time.Duration `yaml:"-" toml:"-"`
	CacheTTL time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	TimeoutRaw  string `yaml:"timeout" toml:"timeout"`
	CacheTTLRaw string `yaml:"cache_ttl" toml:"cache_ttl"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`   // serve on :443 with the tailnet certificate
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // public Funnel, implies HTTPS
}

// ResolvePath picks the config file: the explicit flag value, then RACES_CONFIG, then ./config.yaml.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultConfigPath
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Storage.Extension == "" {
		c.Storage.Extension = defaultExtension
	}
	c.Storage.Extension = strings.TrimPrefix(c.Storage.Extension, ".")

	if c.Polars.TimeoutRaw == "" {
		c.Polars.Timeout = defaultPolarTO
	}
	if c.Polars.CacheTTLRaw == "" {
		c.Polars.CacheTTL = defaultPolarTTL
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Storage.RacesDir == "" {
		return fmt.Errorf("storage.races_dir is required")
	}
	if c.Storage.ArchivedDir == "" {
		return fmt.Errorf("storage.archived_dir is required")
	}
	if filepath.Clean(c.Storage.RacesDir) == filepath.Clean(c.Storage.ArchivedDir) {
		return fmt.Errorf("storage.races_dir and storage.archived_dir must differ")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", minJWTSecretLen)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	if c.Polars.Timeout < 0 || c.Polars.CacheTTL < 0 {
		return fmt.Errorf("polars durations must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Polars.TimeoutRaw != "" {
		cfg.Polars.Timeout, err = time.ParseDuration(cfg.Polars.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing polars.timeout %q: %w", cfg.Polars.TimeoutRaw, err)
		}
	}

	if cfg.Polars.CacheTTLRaw != "" {
		cfg.Polars.CacheTTL, err = time.ParseDuration(cfg.Polars.CacheTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing polars.cache_ttl %q: %w", cfg.Polars.CacheTTLRaw, err)
		}
	}

	return nil
}

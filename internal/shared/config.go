package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Security  SecurityConfig  `toml:"security"`
	Plex      PlexConfig      `toml:"plex"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Health    HealthConfig    `toml:"health"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// APIToken guards the /api routes as a bearer token.
	APIToken string `toml:"api_token"`
	// WebhookToken is the fallback shared secret for webhook calls when no
	// token has been stored in the settings table.
	WebhookToken string `toml:"webhook_token"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SecurityConfig holds the key used to encrypt stored Plex tokens.
type SecurityConfig struct {
	SecretKey string `toml:"secret_key"`
}

// PlexConfig contains Plex client and library verification settings.
type PlexConfig struct {
	VerifyInLibrary       bool    `toml:"verify_in_library"`
	ServerURL             string  `toml:"server_url"`
	ServerToken           string  `toml:"server_token"`
	ClientIdentifier      string  `toml:"client_identifier"`
	Product               string  `toml:"product"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	RequestsPerSecond     float64 `toml:"requests_per_second"`
}

// ReconcileConfig tunes the webhook fan-out.
type ReconcileConfig struct {
	ActivityCapacity int `toml:"activity_capacity"`
	Concurrency      int `toml:"concurrency"`
}

// HealthConfig controls the periodic account revalidation sweep.
type HealthConfig struct {
	IntervalHours       int `toml:"interval_hours"`
	InitialDelaySeconds int `toml:"initial_delay_seconds"`
}

// LogConfig sets the logger level.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored and existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with the REMOVARR_* and PLEX_* environment variables.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("REMOVARR_SECRET_KEY", &c.Security.SecretKey)
	str("REMOVARR_WEBHOOK_TOKEN", &c.Server.WebhookToken)
	str("REMOVARR_API_TOKEN", &c.Server.APIToken)
	str("REMOVARR_DB_PATH", &c.Database.Path)
	str("PLEX_BASE_URL", &c.Plex.ServerURL)
	str("PLEX_SERVER_TOKEN", &c.Plex.ServerToken)

	if v, ok := lookup("REMOVARR_VERIFY_IN_PLEX"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Plex.VerifyInLibrary = b
		}
	}
}

// Validate checks the settings the daemon cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Security.SecretKey) == "" {
		return fmt.Errorf("%w: security.secret_key is required", ErrInvalidConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Reconcile.ActivityCapacity <= 0 {
		return fmt.Errorf("%w: reconcile.activity_capacity must be positive", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// RequestTimeout is the bound applied to every outbound Plex call.
func (c *Config) RequestTimeout() time.Duration {
	if c.Plex.RequestTimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.Plex.RequestTimeoutSeconds) * time.Second
}

// HealthInterval is the period of the account revalidation sweep.
func (c *Config) HealthInterval() time.Duration {
	if c.Health.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Health.IntervalHours) * time.Hour
}

// HealthInitialDelay is the wait before the first sweep after startup.
func (c *Config) HealthInitialDelay() time.Duration {
	if c.Health.InitialDelaySeconds < 0 {
		return 0
	}
	return time.Duration(c.Health.InitialDelaySeconds) * time.Second
}

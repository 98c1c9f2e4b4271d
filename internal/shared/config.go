package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the TOML file.
const (
	EnvAPIURL   = "BOOKLISTER_API_URL"
	EnvAPIToken = "BOOKLISTER_API_TOKEN"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API       APIConfig       `toml:"api"`
	Database  DatabaseConfig  `toml:"database"`
	Export    ExportConfig    `toml:"export"`
	DevServer DevServerConfig `toml:"dev_server"`
	TUI       TUIConfig       `toml:"tui"`
}

// APIConfig contains ingest API connection settings.
type APIConfig struct {
	BaseURL        string  `toml:"base_url"`
	Token          string  `toml:"token"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	ImageRateLimit float64 `toml:"image_rate_limit"`
}

// Timeout returns the request timeout as a [time.Duration].
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ExportConfig contains defaults for queue exports.
type ExportConfig struct {
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// DevServerConfig contains settings for the local development backend.
type DevServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (c DevServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TUIConfig contains terminal UI settings.
type TUIConfig struct {
	LogFile string `toml:"log_file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
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

// ApplyEnv overrides API settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		c.API.Token = v
	}
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

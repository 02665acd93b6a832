package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Playback  PlaybackConfig  `toml:"playback"`
	Network   NetworkConfig   `toml:"network"`
	Analytics AnalyticsConfig `toml:"analytics"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Logging   LoggingConfig   `toml:"logging"`
}

// DatabaseConfig contains database connection settings for durable client storage.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PlaybackConfig contains the engine's tunables.
//
// Quality and CrossfadeSeconds are only initial values: once the listener changes them
// the persisted preference wins.
type PlaybackConfig struct {
	Quality                 string  `toml:"quality"`
	CrossfadeSeconds        int     `toml:"crossfade_seconds"`
	Volume                  float64 `toml:"volume"`
	PreloadSeconds          float64 `toml:"preload_seconds"`
	RestartThresholdSeconds float64 `toml:"restart_threshold_seconds"`
	SaveIntervalSeconds     int     `toml:"save_interval_seconds"`
	StallTimeoutSeconds     int     `toml:"stall_timeout_seconds"`
	TickMS                  int     `toml:"tick_ms"`
}

// NetworkConfig describes the connection the way a browser's Network Information API would.
type NetworkConfig struct {
	EffectiveType string `toml:"effective_type"`
	SaveData      bool   `toml:"save_data"`
}

// AnalyticsConfig configures the beacon sink. An empty endpoint logs events instead.
type AnalyticsConfig struct {
	Endpoint        string  `toml:"endpoint"`
	EventsPerSecond float64 `toml:"events_per_second"`
	Buffer          int     `toml:"buffer"`
}

// CatalogConfig configures the Archive.org metadata client.
type CatalogConfig struct {
	BaseURL         string `toml:"base_url"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
	CacheSize       int    `toml:"cache_size"`
	MaxRetries      int    `toml:"max_retries"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// LoggingConfig contains log level and the TUI log file path.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values. Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
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
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidArgument)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads a .env file into the process environment. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from ENCORE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ENCORE_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("ENCORE_QUALITY"); v != "" {
		c.Playback.Quality = strings.ToLower(v)
	}
	if v := os.Getenv("ENCORE_ANALYTICS_ENDPOINT"); v != "" {
		c.Analytics.Endpoint = v
	}
	if v := os.Getenv("ENCORE_NETWORK_TYPE"); v != "" {
		c.Network.EffectiveType = strings.ToLower(v)
	}
	if v := os.Getenv("ENCORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks ranges the engine relies on.
func (c *Config) Validate() error {
	switch c.Playback.Quality {
	case "", "high", "medium", "low":
	default:
		return fmt.Errorf("%w: playback.quality %q", ErrInvalidConfig, c.Playback.Quality)
	}
	if c.Playback.CrossfadeSeconds < 0 || c.Playback.CrossfadeSeconds > 12 {
		return fmt.Errorf("%w: playback.crossfade_seconds must be within 0-12", ErrInvalidConfig)
	}
	if c.Playback.Volume < 0 || c.Playback.Volume > 1 {
		return fmt.Errorf("%w: playback.volume must be within 0-1", ErrInvalidConfig)
	}
	if c.Playback.TickMS <= 0 {
		return fmt.Errorf("%w: playback.tick_ms must be positive", ErrInvalidConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is empty", ErrInvalidConfig)
	}
	return nil
}

package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./encore.db" {
			t.Errorf("expected database path ./encore.db, got %s", config.Database.Path)
		}

		if config.Playback.PreloadSeconds != 30 {
			t.Errorf("expected preload window 30, got %v", config.Playback.PreloadSeconds)
		}

		if config.Playback.SaveIntervalSeconds != 30 {
			t.Errorf("expected save interval 30, got %d", config.Playback.SaveIntervalSeconds)
		}

		if config.Catalog.BaseURL != "https://archive.org" {
			t.Errorf("expected catalog base URL https://archive.org, got %s", config.Catalog.BaseURL)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[playback]
quality = "medium"
crossfade_seconds = 6
volume = 0.5

[network]
effective_type = "3g"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Playback.CrossfadeSeconds != 6 {
			t.Errorf("expected crossfade 6, got %d", config.Playback.CrossfadeSeconds)
		}

		if config.Playback.TickMS != 250 {
			t.Errorf("keys missing from the file should keep defaults, got tick_ms %d", config.Playback.TickMS)
		}

		if config.Network.EffectiveType != "3g" {
			t.Errorf("expected effective type 3g, got %s", config.Network.EffectiveType)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{"crossfade too long", func(c *Config) { c.Playback.CrossfadeSeconds = 13 }},
			{"negative volume", func(c *Config) { c.Playback.Volume = -0.1 }},
			{"unknown quality", func(c *Config) { c.Playback.Quality = "lossless" }},
			{"empty database path", func(c *Config) { c.Database.Path = "" }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("ENCORE_DB_PATH", "/env/encore.db")
		t.Setenv("ENCORE_QUALITY", "LOW")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Database.Path != "/env/encore.db" {
			t.Errorf("expected env database path, got %s", config.Database.Path)
		}
		if config.Playback.Quality != "low" {
			t.Errorf("expected env quality low, got %s", config.Playback.Quality)
		}
	})

	t.Run("LoadDotEnv missing file", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("missing .env should be tolerated: %v", err)
		}
	})
}

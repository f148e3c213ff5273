package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the backend.
type Config struct {
	Engine   EngineConfig
	Store    StoreConfig
	Settings SettingsConfig
	Feed     FeedConfig
	Log      LogConfig
}

type EngineConfig struct {
	SocketPath  string
	DialTimeout time.Duration
}

type StoreConfig struct {
	DatabasePath string
}

type SettingsConfig struct {
	Path string
}

type FeedConfig struct {
	PollInterval time.Duration
}

type LogConfig struct {
	Dir string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return Config{}, errors.New("could not determine config directory")
		}
		base = filepath.Join(home, ".config")
	}
	appDir := filepath.Join(base, "meetnote")

	cfg := Config{
		Engine: EngineConfig{
			SocketPath:  envOrDefault("MEETNOTE_ENGINE_SOCKET", filepath.Join(appDir, "engine.sock")),
			DialTimeout: time.Duration(envOrDefaultInt("MEETNOTE_ENGINE_DIAL_TIMEOUT_MS", 2000)) * time.Millisecond,
		},
		Store: StoreConfig{
			DatabasePath: envOrDefault("MEETNOTE_DB_PATH", filepath.Join(appDir, "meetnote.sqlite")),
		},
		Settings: SettingsConfig{
			Path: envOrDefault("MEETNOTE_SETTINGS_PATH", filepath.Join(appDir, "settings.toml")),
		},
		Feed: FeedConfig{
			PollInterval: time.Duration(envOrDefaultInt("MEETNOTE_FEED_POLL_MS", 1000)) * time.Millisecond,
		},
		Log: LogConfig{
			Dir: envOrDefault("MEETNOTE_LOG_DIR", filepath.Join(appDir, "logs")),
		},
	}

	if cfg.Feed.PollInterval < 100*time.Millisecond {
		cfg.Feed.PollInterval = time.Second
	}
	if cfg.Engine.DialTimeout <= 0 {
		cfg.Engine.DialTimeout = 2 * time.Second
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ServerConfig holds the connection settings for the community backend.
type ServerConfig struct {
	// BaseURL is the root URL of the community REST API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// UserID is the signed-in account id. All aggregation is scoped
	// to this account.
	UserID int64 `mapstructure:"user_id" yaml:"user_id"`

	// Pseudo is the signed-in account's display name, embedded in the
	// sender tag of outgoing messages.
	Pseudo string `mapstructure:"pseudo" yaml:"pseudo"`

	// Avatar is the signed-in account's avatar URL, embedded in the
	// sender tag of outgoing messages.
	Avatar string `mapstructure:"avatar" yaml:"avatar"`
}

// PollingConfig controls the refresh cadence of the notification feed.
type PollingConfig struct {
	// ActiveIntervalMs is the poll interval while a conversation is
	// open, in milliseconds. Sub-second by default to approximate
	// real-time delivery.
	ActiveIntervalMs int `mapstructure:"active_interval_ms" yaml:"active_interval_ms"`

	// IdleIntervalMs is the poll interval while only the conversation
	// list is visible.
	IdleIntervalMs int `mapstructure:"idle_interval_ms" yaml:"idle_interval_ms"`

	// PageSize is the number of records requested per feed fetch.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig  `mapstructure:"server" yaml:"server"`
	Polling  PollingConfig `mapstructure:"polling" yaml:"polling"`
	Display  DisplayConfig `mapstructure:"display" yaml:"display"`
	LogLevel string        `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/escale/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "escale", "config.yaml")
}

// DefaultDataDir returns the directory holding the local cache database
// and log file.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "escale")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Polling: PollingConfig{
			ActiveIntervalMs: 750,
			IdleIntervalMs:   5000,
			PageSize:         200,
		},
		Display:  DisplayConfig{Theme: "default"},
		LogLevel: "info",
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("polling.active_interval_ms", 750)
	v.SetDefault("polling.idle_interval_ms", 5000)
	v.SetDefault("polling.page_size", 200)
	v.SetDefault("display.theme", "default")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("polling", cfg.Polling)
	v.Set("display", cfg.Display)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// Configured reports whether the minimum server settings are present.
func (c *AppConfig) Configured() bool {
	return c.Server.BaseURL != "" && c.Server.UserID != 0
}

package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, 750, cfg.Polling.ActiveIntervalMs)
	require.Equal(t, 5000, cfg.Polling.IdleIntervalMs)
	require.Equal(t, 200, cfg.Polling.PageSize)
	require.Equal(t, "info", cfg.LogLevel)
	require.False(t, cfg.Configured())
}

func TestSaveAndLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &AppConfig{
		Server: ServerConfig{
			BaseURL: "https://community.example.com",
			UserID:  100,
			Pseudo:  "ana",
			Avatar:  "ana.png",
		},
		Polling:  PollingConfig{ActiveIntervalMs: 500, IdleIntervalMs: 3000, PageSize: 100},
		Display:  DisplayConfig{Theme: "default"},
		LogLevel: "debug",
	}
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Server, loaded.Server)
	require.Equal(t, cfg.Polling, loaded.Polling)
	require.Equal(t, "debug", loaded.LogLevel)
	require.True(t, loaded.Configured())
}

func TestConfigured(t *testing.T) {
	cfg := &AppConfig{}
	require.False(t, cfg.Configured())

	cfg.Server.BaseURL = "https://community.example.com"
	require.False(t, cfg.Configured())

	cfg.Server.UserID = 100
	require.True(t, cfg.Configured())
}

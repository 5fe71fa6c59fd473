package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nmarchal/escale/internal/app"
	"github.com/nmarchal/escale/internal/logging"
	"github.com/nmarchal/escale/internal/model"
	"github.com/nmarchal/escale/internal/store"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:           "escale",
		Short:         "escale terminal messaging client",
		Long:          "Bubbletea-based terminal client for escale private messages.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, debug)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default ~/.config/escale/config.yaml)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func run(configPath string, debug bool) error {
	if configPath == "" {
		configPath = model.DefaultConfigPath()
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dataDir := model.DefaultDataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	if err := logging.Init(level, filepath.Join(dataDir, "escale.log")); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	s, err := store.NewSQLiteStore(filepath.Join(dataDir, "escale.db"))
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	defer s.Close()

	m, err := app.New(cfg, configPath, s)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

// Package logging provides structured logging for escale using zerolog.
// The TUI owns the terminal, so logs go to a file under the data
// directory rather than stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. It discards everything until
// Init is called.
var Logger = zerolog.Nop()

// Init initializes the global logger, writing to logPath at the given
// minimum level (debug, info, warn, error).
func Init(level, logPath string) error {
	zerolog.SetGlobalLevel(parseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", logPath, err)
	}

	Logger = zerolog.New(f).With().Timestamp().Logger()
	return nil
}

// parseLevel converts a level string to a zerolog level, defaulting
// to info.
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

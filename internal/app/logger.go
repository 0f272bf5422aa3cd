package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// newLogger creates a slog.Logger writing text or json lines to outW. It
// does not set the global logger, allowing for isolated logger instances.
// Unknown levels fall back to info.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(levelStr))); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(outW, handlerOpts))
}

// logWriter picks the log destination. The viewer owns the terminal, so
// an interactive run without a log file logs nowhere.
func logWriter(outW io.Writer, cfg *Config) (io.Writer, func() error) {
	nop := func() error { return nil }
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		return f, f.Close
	}
	if cfg.Interactive {
		return io.Discard, nop
	}
	return outW, nop
}

// Package logging builds the structured logger shared by every component.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/mimir-aip/winequality/pkg/models"
)

// ParseLevel maps a configured level name to a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, models.NewConfigurationError("logging", "log_level", "unknown level %q", level)
	}
}

// New creates a logger writing text or JSON records at level to w. A nil w means stderr.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch format {
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, models.NewConfigurationError("logging", "log_format", "unknown format %q", format)
	}
	return slog.New(handler), nil
}

// Setup creates a logger and installs it as the process default, so packages that still
// use the standard log package write through it too
func Setup(level, format string, w io.Writer) (*slog.Logger, error) {
	logger, err := New(level, format, w)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	log.SetFlags(0)
	return logger, nil
}

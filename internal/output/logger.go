/*
PURPOSE:
  Provides a structured logger for Council Runner.
  Wraps slog for consistent output.

REQUIREMENTS:
  User-specified:
  - "Sane" CLI output. Not spammy.

  Implementation-discovered:
  - Level must be configurable (the deliberation stages are chatty at debug).

IMPLEMENTATION RULES:
  - Use `log/slog` (Go 1.21+).

USAGE:
  output.Logger.Info("message", "key", "value")

MAINTENANCE:
  - Logger goes to stderr so stdout stays clean for the final synthesis.
*/

package output

import (
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// SetLevel reconfigures the global logger at the given level
// ("debug", "info", "warn", "error"). Unknown levels mean info.
func SetLevel(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// SetLogger allows overriding the default logger (e.g. for testing).
func SetLogger(l *slog.Logger) {
	Logger = l
}

// Package observability wires process-wide logging.
package observability

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/config"
)

// SetupLogging installs the default slog handler according to configuration.
// Text output uses tint for readable terminal logs; JSON is intended for
// scheduled/unattended runs where logs are shipped elsewhere.
func SetupLogging(level config.LogLevel, format config.LogFormat) *slog.Logger {
	slogLevel := toSlogLevel(level)

	var handler slog.Handler
	switch format {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	default:
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func toSlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

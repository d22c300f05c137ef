package utils

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// SetupLogger installs a tint handler as the default slog logger.
func SetupLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)
	return logger
}

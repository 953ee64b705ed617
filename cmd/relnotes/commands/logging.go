package commands

import (
	"io"
	"log/slog"

	"github.com/Sumatoshi-tech/relnotes/internal/config"
)

// newLogger builds the leveled logger every collaborator receives. All
// diagnostics go to w, keeping stdout free for the document. An unrecognized
// level falls back to info with a warning.
func newLogger(w io.Writer, level string) *slog.Logger {
	parsed, known := config.ParseLevel(level)

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parsed}))
	if !known {
		logger.Warn("unknown log level, using info", "level", level)
	}

	return logger
}

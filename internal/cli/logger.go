package cli

import (
	"io"
	"log/slog"
	"strings"

	"vendoralerts/internal/config"
)

// newLogger builds the process logger. JSON is the default; LOG_FORMAT=text
// is easier to read locally.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

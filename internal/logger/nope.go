package logger

import (
	"io"
	"log/slog"
)

// NewNope returns a logger that discards everything. Tests use it.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

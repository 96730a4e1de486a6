// Package logger builds the slog logger used by the CLI: a console handler,
// an optional append-only log file and optional Sentry reporting, fanned out
// through one handler.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Config selects the log destinations.
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // text or json
	File      string // optional log file, appended to
	SentryDSN string
	// Environment tags Sentry events.
	Environment string
	// Console receives the console output; nil means os.Stderr.
	Console io.Writer
}

// New returns the logger and a function that flushes and closes what it opened.
func New(cfg Config) (*slog.Logger, func(), error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{newHandler(cfg.Format, console, opts)}
	var closers []func()

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, newHandler(cfg.Format, f, opts))
		closers = append(closers, func() { _ = f.Close() })
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
			EnableLogs:  true,
		}); err != nil {
			slog.New(handlers[0]).Error("logger: sentry init failed", "err", err)
		} else {
			handlers = append(handlers, sentryslog.Option{
				EventLevel: []slog.Level{slog.LevelError},
				LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
			}.NewSentryHandler(context.Background()))
			closers = append(closers, func() { sentry.Flush(2 * time.Second) })
		}
	}

	var h slog.Handler = handlers[0]
	if len(handlers) > 1 {
		h = newMultiHandler(handlers...)
	}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return slog.New(h), closeAll, nil
}

func newHandler(format string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel maps a level name to slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

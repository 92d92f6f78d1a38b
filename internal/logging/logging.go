// Package logging builds the slog loggers used for diagnostics.
// Diagnostics always go to stderr so stdout stays clean for reports.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// Options configures a logger.
type Options struct {
	Verbose bool // include debug records
	Quiet   bool // only warnings and errors, ignored when Verbose is set
	JSON    bool // emit JSON records instead of text
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case opts.Verbose:
		level = slog.LevelDebug
	case opts.Quiet:
		level = slog.LevelWarn
	}
	hopts := &slog.HandlerOptions{Level: level}

	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool { return false }

func (discardHandler) Handle(context.Context, slog.Record) error { return nil }

func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler { return d }

func (d discardHandler) WithGroup(string) slog.Handler { return d }

// SPDX-License-Identifier: MPL-2.0

// Package logging installs the process-wide slog handler and hands out
// per-module loggers. Records are rendered by charmbracelet/log; the module
// name becomes the log prefix.
package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// ModuleKey is the attribute key carrying the module name when the
// installed handler is not a charmbracelet logger.
const ModuleKey = "mod"

type (
	// Options configures New.
	Options struct {
		// Verbose enables debug records.
		Verbose bool
		// Timestamps adds a time column.
		Timestamps bool
	}

	// moduleHandler resolves the default handler at record time so that
	// module loggers created in package variables follow a later Setup.
	moduleHandler struct {
		module string
		base   func() slog.Handler
		ops    []func(slog.Handler) slog.Handler
	}
)

// New builds a slog logger backed by a charmbracelet/log text logger.
func New(w io.Writer, opts Options) *slog.Logger {
	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: opts.Timestamps,
		TimeFormat:      "2006-01-02 15:04:05",
	})

	styles := log.DefaultStyles()
	styles.Prefix = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	logger.SetStyles(styles)

	return slog.New(logger)
}

// Setup installs New(w, opts) as the slog default.
func Setup(w io.Writer, opts Options) {
	slog.SetDefault(New(w, opts))
}

// Module returns a logger whose records carry the module name.
func Module(name string) *slog.Logger {
	return newModuleLogger(name, func() slog.Handler { return slog.Default().Handler() })
}

func newModuleLogger(name string, base func() slog.Handler) *slog.Logger {
	return slog.New(&moduleHandler{module: name, base: base})
}

func (h *moduleHandler) resolve() slog.Handler {
	base := h.base()
	var out slog.Handler
	if cl, ok := base.(*log.Logger); ok {
		out = cl.WithPrefix(h.module)
	} else {
		out = base.WithAttrs([]slog.Attr{slog.String(ModuleKey, h.module)})
	}
	for _, op := range h.ops {
		out = op(out)
	}
	return out
}

func (h *moduleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base().Enabled(ctx, level)
}

//nolint:gocritic // slog.Handler signature
func (h *moduleHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h *moduleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *moduleHandler) WithGroup(name string) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *moduleHandler) with(op func(slog.Handler) slog.Handler) slog.Handler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &moduleHandler{module: h.module, base: h.base, ops: append(ops, op)}
}

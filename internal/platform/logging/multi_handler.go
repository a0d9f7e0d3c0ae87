package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// MultiHandler tees records to the terminal handler and the rolling JSON
// file. Each destination keeps its own level.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler tees to handlers. Nil handlers are dropped.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: slices.DeleteFunc(slices.Clone(handlers), func(h slog.Handler) bool {
		return h == nil
	})}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(h.handlers, func(d slog.Handler) bool { return d.Enabled(ctx, level) })
}

// Handle writes r to every destination enabled at its level. A failing
// destination does not stop the rest.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	var err error

	for _, d := range h.handlers {
		if d.Enabled(ctx, r.Level) {
			err = errors.Join(err, d.Handle(ctx, r.Clone()))
		}
	}

	return err
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(d slog.Handler) slog.Handler { return d.WithAttrs(attrs) })
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(d slog.Handler) slog.Handler { return d.WithGroup(name) })
}

func (h *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	out := make([]slog.Handler, 0, len(h.handlers))
	for _, d := range h.handlers {
		out = append(out, fn(d))
	}

	return &MultiHandler{handlers: out}
}

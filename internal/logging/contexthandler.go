// Package logging extends log/slog with request-scoped context attributes.
package logging

import (
	"context"
	"log/slog"

	"github.com/myrjola/sotopia-chat/internal/errors"
)

type contextKey string

const slogAttrs contextKey = "slogAttrs"

// ContextHandler decorates a [slog.Handler] so that attributes stored in
// [context.Context] with [WithAttrs] end up on every log record.
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler wraps the given handler.
func NewContextHandler(h slog.Handler) ContextHandler {
	return ContextHandler{Handler: h}
}

// Handle enriches the log record with the attributes stored in ctx.
func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogAttrs).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}

	if err := h.Handler.Handle(ctx, r); err != nil {
		return errors.Wrap(err, "handle log record")
	}
	return nil
}

// WithAttrs returns a context whose log records carry the given attributes in
// addition to any attributes already stored in ctx.
func WithAttrs(ctx context.Context, attr ...slog.Attr) context.Context {
	if v, ok := ctx.Value(slogAttrs).([]slog.Attr); ok {
		merged := make([]slog.Attr, 0, len(v)+len(attr))
		merged = append(merged, v...)
		merged = append(merged, attr...)
		return context.WithValue(ctx, slogAttrs, merged)
	}
	return context.WithValue(ctx, slogAttrs, attr)
}

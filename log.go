package mdtemplar

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

var slogCtxKey = ctxKey{}

// LoggingContext кладёт логгер в контекст. Сам рендерер не логирует;
// логгер используют WriteDocument и пакетная обработка.
func LoggingContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, slogCtxKey, logger)
}

// Logger достаёт логгер из контекста; без него логи отбрасываются.
func Logger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(slogCtxKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.New(noopHandler{})
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (n noopHandler) WithAttrs([]slog.Attr) slog.Handler      { return n }
func (n noopHandler) WithGroup(string) slog.Handler           { return n }

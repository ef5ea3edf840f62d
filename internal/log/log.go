package log

import (
	"context"
	"io"
	"log/slog"
	"os"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	Stderr  = "stderr"
	Stdout  = "stdout"
	Discard = "discard"

	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 7
)

type slogKeyT struct{}

var slogKey slogKeyT

type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(handler slog.Handler) ContextHandler {
	return ContextHandler{
		Handler: handler,
	}
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if a, ok := ctx.Value(slogKey).([]slog.Attr); ok {
		r.AddAttrs(a...)
	}

	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// ContextAttrs returns a context carrying attrs, which are added to every record
// logged with this context.
func ContextAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	a, ok := ctx.Value(slogKey).([]slog.Attr)
	if !ok || a == nil {
		a = make([]slog.Attr, 0, len(attrs))
	} else {
		a = append([]slog.Attr(nil), a...)
	}
	a = append(a, attrs...)
	return context.WithValue(ctx, slogKey, a)
}

// Writer maps the service.log config value to a destination. Anything other than
// stderr, stdout or discard is a file path, which is rotated by lumberjack.
// Closing the standard streams is a no-op.
func Writer(dest string) io.WriteCloser {
	switch dest {
	case "", Stderr:
		return nopCloser{os.Stderr}
	case Stdout:
		return nopCloser{os.Stdout}
	case Discard:
		return nopCloser{io.Discard}
	default:
		return &lj.Logger{
			Filename:   dest,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	base := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	})
	ctxHandler := NewContextHandler(base)
	return slog.New(ctxHandler)
}

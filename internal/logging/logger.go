package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"syscall"

	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap logger whose methods take a context and prepend the
// correlation fields found there (trace, request id, post platform).
type Logger struct {
	zap    *zap.Logger
	config *Config
}

// NewLogger creates a logger from cfg. A nil otelProvider disables OTEL
// output even when cfg asks for it.
func NewLogger(cfg *Config, otelProvider log.LoggerProvider) (*Logger, error) {
	return newLogger(cfg, otelProvider, nil)
}

// newLogger is NewLogger with an explicit console writer; nil selects the
// configured stream.
func newLogger(cfg *Config, otelProvider log.LoggerProvider, w io.Writer) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if w == nil {
		w = streamWriter(cfg.Output.Stream)
	}

	core, err := newDualCore(cfg, otelProvider, zapcore.AddSync(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}

	opts := []zap.Option{zap.AddStacktrace(cfg.Stacktrace.Level)}
	if cfg.Caller.Enabled {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(cfg.Caller.Skip))
	}
	if len(cfg.Fields) > 0 {
		opts = append(opts, zap.Fields(staticFields(cfg.Fields)...))
	}

	return &Logger{zap: zap.New(core, opts...), config: cfg}, nil
}

// staticFields turns the configured fields into zap fields in key order, so
// that every entry lists them the same way.
func staticFields(m map[string]string) []zap.Field {
	fields := make([]zap.Field, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		fields = append(fields, zap.String(k, m[k]))
	}
	return fields
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}

func streamWriter(stream string) io.Writer {
	if stream == "stdout" {
		return os.Stdout
	}
	return os.Stderr
}

func newEncoder(format string) zapcore.Encoder {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = encodeLevel
	if format == "console" {
		enc.EncodeDuration = zapcore.StringDurationEncoder
		return zapcore.NewConsoleEncoder(enc)
	}
	return zapcore.NewJSONEncoder(enc)
}

// The leveled methods call zap's Check themselves so that caller reporting
// skips exactly one frame, and context fields are only built for entries
// that will be written.

func (l *Logger) Trace(ctx context.Context, msg string, fields ...zap.Field) {
	write(ctx, l.zap.Check(TraceLevel, msg), fields)
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	write(ctx, l.zap.Check(zapcore.DebugLevel, msg), fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	write(ctx, l.zap.Check(zapcore.InfoLevel, msg), fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	write(ctx, l.zap.Check(zapcore.WarnLevel, msg), fields)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	write(ctx, l.zap.Check(zapcore.ErrorLevel, msg), fields)
}

func write(ctx context.Context, ce *zapcore.CheckedEntry, fields []zap.Field) {
	if ce == nil {
		return
	}
	ce.Write(append(ContextFields(ctx), fields...)...)
}

func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...), config: l.config}
}

// Named scopes the logger to a component ("http", "settings", ...).
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name), config: l.config}
}

// Enabled returns true if the given level is enabled.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.zap.Core().Enabled(level)
}

// Sync flushes buffered entries. Syncing a terminal or pipe is not an error.
func (l *Logger) Sync() error {
	if err := l.zap.Sync(); err != nil && !isStdoutSyncError(err) {
		return err
	}
	return nil
}

// Zap returns the wrapped logger for the library packages (patterns,
// scoring, settings), which take a plain *zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}

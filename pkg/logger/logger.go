// Package logger builds the zap logger shared by the entry points and adds
// context-aware helpers that tag lines with the current run id.
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunIDKey is the log field carrying the run id.
const RunIDKey = "run_id"

type runIDCtxKey struct{}

// Log is the process-wide logger. It discards output until Init is called.
var Log = zap.NewNop()

// Options configures New.
type Options struct {
	Service string
	// Level is debug, info, warn or error; anything else means info.
	Level string
	// File, when set, receives output instead of Writer.
	File string
	// Writer defaults to stderr.
	Writer io.Writer
}

// New builds a JSON logger. The returned close func releases the log file,
// if one was opened.
func New(opts Options) (*zap.Logger, func() error, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil {
		lvl = zap.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.MessageKey = "msg"

	closeFn := func() error { return nil }
	var sink zapcore.WriteSyncer
	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		sink, closeFn = zapcore.AddSync(f), f.Close
	case opts.Writer != nil:
		sink = zapcore.AddSync(opts.Writer)
	default:
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), sink, lvl)
	l := zap.New(core, zap.AddCaller())
	if opts.Service != "" {
		l = l.With(zap.String("service", opts.Service))
	}
	return l, closeFn, nil
}

// Init replaces Log with a logger built from opts.
func Init(opts Options) (func() error, error) {
	l, closeFn, err := New(opts)
	if err != nil {
		return nil, err
	}
	Log = l
	return closeFn, nil
}

// WithRunID returns a context carrying id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDCtxKey{}, id)
}

// RunID returns the run id stored in ctx, if any.
func RunID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDCtxKey{}).(string)
	return id, ok && id != ""
}

// For returns Log tagged with the run id in ctx.
func For(ctx context.Context) *zap.Logger {
	if id, ok := RunID(ctx); ok {
		return Log.With(zap.String(RunIDKey, id))
	}
	return Log
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	Log.WithOptions(zap.AddCallerSkip(1)).Info(msg, withRunID(ctx, fields)...)
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	Log.WithOptions(zap.AddCallerSkip(1)).Warn(msg, withRunID(ctx, fields)...)
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	Log.WithOptions(zap.AddCallerSkip(1)).Error(msg, withRunID(ctx, fields)...)
}

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	Log.WithOptions(zap.AddCallerSkip(1)).Debug(msg, withRunID(ctx, fields)...)
}

func withRunID(ctx context.Context, fields []zap.Field) []zap.Field {
	if id, ok := RunID(ctx); ok {
		fields = append(fields, zap.String(RunIDKey, id))
	}
	return fields
}

// Sync flushes Log.
func Sync() {
	_ = Log.Sync()
}

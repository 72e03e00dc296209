// Package log provides context-aware structured logging on top of zap.
// Hooks registered on the logger can derive extra fields from the context,
// so call sites only pass the context and their own fields.
package log

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	zap   *zap.Logger
	hooks []Hook
}

// New builds a logger from config. Invalid levels fall back to info.
func New(cfg Config) *Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder

	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default:
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	var sink zapcore.WriteSyncer

	switch cfg.Output {
	case "", "stdout":
		sink = zapcore.AddSync(os.Stdout)
	case "stderr":
		sink = zapcore.AddSync(os.Stderr)
	default:
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		})
	}

	core := zapcore.NewCore(encoder, sink, level)

	logger := &Logger{
		zap: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)),
	}
	logger.AddHook(HookFunc(traceFields))

	return logger
}

// AddHook registers a hook applied to every entry logged through this logger.
func (l *Logger) AddHook(hook Hook) {
	l.hooks = append(l.hooks, hook)
}

func (l *Logger) log(ctx context.Context, level zapcore.Level, msg string, fields ...Field) {
	for _, hook := range l.hooks {
		fields = hook.Apply(ctx, msg, fields...)
	}

	if ce := l.zap.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields...)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields...)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

var (
	globalMu sync.RWMutex
	global   = New(DefaultConfig())
)

// SetLogger replaces the process-wide logger used by the package-level functions.
func SetLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()

	global = logger
}

func getLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	return global
}

func Debug(ctx context.Context, msg string, fields ...Field) {
	getLogger().Debug(ctx, msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...Field) {
	getLogger().Info(ctx, msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...Field) {
	getLogger().Warn(ctx, msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...Field) {
	getLogger().Error(ctx, msg, fields...)
}

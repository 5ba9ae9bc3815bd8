// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package commons provides the application-wide structured logger used by
// every component in the orchestrator. It mirrors the Logger contract used
// throughout the voice-AI platform this service was split out of, so call
// sites read the same regardless of which service they live in.
package commons

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging contract every component depends on via
// constructor injection. Never read from a package-level global.
type Logger interface {
	Level() zapcore.Level

	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	DPanic(args ...interface{})
	DPanicf(template string, args ...interface{})
	Panic(args ...interface{})
	Panicf(template string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})

	// Warnw logs a warning with structured key/value pairs.
	Warnw(msg string, keysAndValues ...interface{})
	// Infow logs at info level with structured key/value pairs.
	Infow(msg string, keysAndValues ...interface{})

	// Benchmark records how long a named operation took. Used at
	// component boundaries (initiator, bridge, scheduler tick) to keep
	// an eye on latency without pulling in a metrics system.
	Benchmark(functionName string, duration time.Duration)

	// Tracef is a context-aware debug log, kept for call sites that want
	// to thread a request-scoped context through without a full tracer.
	Tracef(ctx context.Context, format string, args ...interface{})

	Sync() error
}

type zapLogger struct {
	*zap.SugaredLogger
	level zapcore.Level
}

// Options configures NewApplicationLogger.
type Options struct {
	Level      string // debug, info, warn, error
	FilePath   string // if set, logs are written here with rotation; stderr otherwise
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewApplicationLogger builds the process-wide Logger. With zero-value
// Options it logs to stderr at info level — the default used by unit tests.
func NewApplicationLogger(opts ...Options) (Logger, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	level := zapcore.InfoLevel
	if o.Level != "" {
		if err := level.UnmarshalText([]byte(o.Level)); err != nil {
			level = zapcore.InfoLevel
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var sink zapcore.WriteSyncer
	if o.FilePath != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   o.FilePath,
			MaxSize:    nonZero(o.MaxSizeMB, 100),
			MaxBackups: nonZero(o.MaxBackups, 5),
			MaxAge:     nonZero(o.MaxAgeDays, 28),
			Compress:   true,
		})
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(encoder, sink, level)
	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &zapLogger{SugaredLogger: base.Sugar(), level: level}, nil
}

func nonZero(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func (l *zapLogger) Level() zapcore.Level {
	return l.level
}

func (l *zapLogger) Benchmark(functionName string, duration time.Duration) {
	l.SugaredLogger.Debugw("benchmark", "function", functionName, "duration_ms", duration.Milliseconds())
}

func (l *zapLogger) Tracef(ctx context.Context, format string, args ...interface{}) {
	l.SugaredLogger.Debugf(format, args...)
}

func (l *zapLogger) Sync() error {
	return l.SugaredLogger.Sync()
}

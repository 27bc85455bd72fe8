// Package logging contains the zap-backed logger used by armkin.
package logging

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var (
	globalMu     sync.RWMutex
	globalLogger = NewLogger("armkin")
)

// ReplaceGlobal replaces the global logger.
func ReplaceGlobal(logger Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Global returns the global logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// NewZapLoggerConfig returns the console config all armkin loggers are built from. Stacktraces are
// disabled and levels are colored.
func NewZapLoggerConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a new logger that outputs Info+ logs to stdout.
func NewLogger(name string) Logger {
	return newStdoutLogger(name, INFO)
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout.
func NewDebugLogger(name string) Logger {
	return newStdoutLogger(name, DEBUG)
}

// NewBlankLogger returns a logger that discards everything. Useful for CLI paths where only
// explicit output should reach the terminal.
func NewBlankLogger(name string) Logger {
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	return &impl{name: name, level: level, core: zapcore.NewNopCore()}
}

// NewTestLogger returns a new logger that outputs Debug+ logs through the given testing.TB.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	testCore := zaptest.NewLogger(tb, zaptest.Level(zapcore.DebugLevel)).Core()
	observerCore, observedLogs := observer.New(zapcore.DebugLevel)
	return &impl{
		name:  "",
		level: zap.NewAtomicLevelAt(zapcore.DebugLevel),
		core:  zapcore.NewTee(testCore, observerCore),
	}, observedLogs
}

func newStdoutLogger(name string, lvl Level) Logger {
	config := NewZapLoggerConfig()
	// The core passes everything; each logger's own level filters on top of it.
	config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	// Building from a static config only fails on bad output paths, and stdout is always valid.
	zl := zap.Must(config.Build())
	return &impl{name: name, level: zap.NewAtomicLevelAt(lvl.AsZap()), core: zl.Core()}
}

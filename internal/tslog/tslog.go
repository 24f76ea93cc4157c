// Package tslog is a small structured-logging facade over go.uber.org/zap,
// in the spirit of Erigon's own erigon-lib/log wrapper: call sites pass
// loosely-typed key/value pairs instead of building zap.Field values
// directly, and a nil *Logger is a valid no-op logger.
package tslog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.SugaredLogger. The zero value, like a nil *Logger,
// discards everything; New builds one that writes output.
type Logger struct {
	s *zap.SugaredLogger
}

// New builds a Logger writing leveled, human-readable console output to
// stderr — suitable for the cmd/chronosteward CLI and for tests that want
// visibility into scheduling decisions.
func New(level zapcore.Level) *Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		// Config above is static and always valid; a failure here means the
		// zap API changed underneath us.
		panic(err)
	}
	return &Logger{s: l.Sugar()}
}

// Nop returns a Logger that discards everything, for tests and for
// embedders who have not wired a logger in.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

func (l *Logger) with() *zap.SugaredLogger {
	if l == nil || l.s == nil {
		return nopSingleton
	}
	return l.s
}

var nopSingleton = zap.NewNop().Sugar()

func (l *Logger) Debug(msg string, kv ...any) { l.with().Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)   { l.with().Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)   { l.with().Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any)  { l.with().Errorw(msg, kv...) }

// LevelFromEnv reads CHRONOSTEWARD_LOG_LEVEL ("debug", "info", "warn",
// "error"), defaulting to info — mirroring Erigon's env-driven verbosity
// knobs for its own binaries.
func LevelFromEnv() zapcore.Level {
	switch os.Getenv("CHRONOSTEWARD_LOG_LEVEL") {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

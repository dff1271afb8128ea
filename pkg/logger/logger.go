package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines structured logging interface
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
	With(args ...any) Logger
}

// ZapLogger implements Logger on top of zap's sugared logger
type ZapLogger struct {
	s *zap.SugaredLogger
}

// New creates a JSON logger at the given level. Development mode switches
// to zap's console encoder.
func New(level string, development bool) Logger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		l = zap.NewExample()
	}
	return &ZapLogger{s: l.Sugar()}
}

// Wrap adapts an existing zap logger
func Wrap(l *zap.Logger) Logger {
	return &ZapLogger{s: l.Sugar()}
}

// NewNop returns a logger that discards everything
func NewNop() Logger {
	return &ZapLogger{s: zap.NewNop().Sugar()}
}

func (l *ZapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l *ZapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }

func (l *ZapLogger) With(args ...any) Logger {
	return &ZapLogger{s: l.s.With(args...)}
}

// Sync flushes buffered entries
func (l *ZapLogger) Sync() error {
	return l.s.Sync()
}

// Package logger builds the zap logger used across submod and keeps a
// package-level instance for call sites that are not handed one.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var singleton atomic.Pointer[zap.SugaredLogger]

func init() {
	singleton.Store(zap.NewNop().Sugar())
}

// ParseLevel parses debug, info, warn or error
func ParseLevel(s string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// New creates a console logger writing to w at level
func New(w io.Writer, level zapcore.Level) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core).Sugar()
}

// Initialize replaces the package-level logger and returns it
func Initialize(w io.Writer, level string) (*zap.SugaredLogger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := New(w, lvl)
	singleton.Store(l)
	return l, nil
}

// Get returns the package-level logger for injection into structs
func Get() *zap.SugaredLogger {
	return singleton.Load()
}

// Set replaces the package-level logger. Intended for tests.
func Set(l *zap.SugaredLogger) {
	singleton.Store(l)
}

// Debugw logs at debug level with key-value pairs
func Debugw(msg string, keysAndValues ...any) {
	Get().Debugw(msg, keysAndValues...)
}

// Infof logs at info level
func Infof(msg string, args ...any) {
	Get().Infof(msg, args...)
}

// Warnw logs at warn level with key-value pairs
func Warnw(msg string, keysAndValues ...any) {
	Get().Warnw(msg, keysAndValues...)
}

// Warnf logs at warn level
func Warnf(msg string, args ...any) {
	Get().Warnf(msg, args...)
}

// Errorw logs at error level with key-value pairs
func Errorw(msg string, keysAndValues ...any) {
	Get().Errorw(msg, keysAndValues...)
}

// Sync flushes buffered entries
func Sync() {
	_ = Get().Sync()
}

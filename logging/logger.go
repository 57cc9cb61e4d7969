// Package logging - Builds the zap logger shared by the command line tool and its packages.
package logging

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel is used when no level is given.
const DefaultLevel = "info"

// ParseLevel converts a level name (debug, info, warn, error) into a zap level.
//
// Arguments:
//   - level: The level name, case-insensitive. "" means DefaultLevel.
//
// Returns:
//   - zapcore.Level: The parsed level.
//   - error: An error naming the rejected value.
func ParseLevel(level string) (zapcore.Level, error) {
	level = strings.TrimSpace(strings.ToLower(level))
	if level == "" {
		level = DefaultLevel
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return l, errors.Wrapf(err, "invalid log level %q", level)
	}
	return l, nil
}

// New creates a human-readable console logger writing to stderr.
//
// stdout is left to the command's result, the output path.
//
// Arguments:
//   - level: The minimum level to emit.
//
// Returns:
//   - *zap.Logger: The logger. Callers should defer Sync.
//   - error: An error if the level is invalid.
func New(level string) (*zap.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewWithSink(l, zapcore.Lock(os.Stderr)), nil
}

// NewWithSink creates a console logger writing to ws.
func NewWithSink(level zapcore.Level, ws zapcore.WriteSyncer) *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), ws, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.DPanicLevel))
}

// Package logging builds the zap loggers used by the command line tool.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a console logger writing to w. The command line tool passes
// stderr, so that documents and positions printed on stdout stay machine
// readable.
func New(w io.Writer, level zapcore.Level) *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.NameKey = "component"

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	)
	return zap.New(core)
}

// NewNop returns a no-op logger.
func NewNop() *zap.Logger {
	return zap.NewNop()
}

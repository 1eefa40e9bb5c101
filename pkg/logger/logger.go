// Package logger provides opinionated logging capabilities for the loom system
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger with a runtime-adjustable level so the serve
// command can flip debug logging on a config reload without restarting.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// SetDebug switches the logger between info and debug level at runtime.
func (l *Logger) SetDebug(debug bool) {
	if debug {
		l.level.SetLevel(zap.DebugLevel)
		return
	}
	l.level.SetLevel(zap.InfoLevel)
}

func NewLogger(debug bool) *Logger {
	return NewLoggerWithWriters(debug, os.Stdout)
}

func NewLoggerWithWriters(debug bool, writers ...io.Writer) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level.SetLevel(zap.DebugLevel)
	}

	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}

	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, writer := range writers {
		syncers = append(syncers, zapcore.AddSync(writer))
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(syncers...),
		level,
	)

	return &Logger{
		Logger: zap.New(core, zap.AddCaller()),
		level:  level,
	}
}

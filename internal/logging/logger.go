// Package logging builds the zap loggers used across pyinfer.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below zap's debug level. The inference engine's per-node
// reports are only interesting at this verbosity.
const TraceLevel = zapcore.Level(-8)

func lowercaseLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if level == TraceLevel {
		enc.AppendString("trace")
		return
	}
	zapcore.LowercaseLevelEncoder(level, enc)
}

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if level == TraceLevel {
		enc.AppendString("\x1b[90mTRACE\x1b[0m")
		return
	}
	zapcore.CapitalColorLevelEncoder(level, enc)
}

// Logger embeds zap.Logger and adds the trace level and a level that can be
// changed after construction.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New creates a logger named name. Output goes to stderr so that command
// output on stdout stays machine readable.
//
// Environment:
//   - LOG_FORMAT=console|development selects the human readable encoder.
//   - PYINFER_LOG_LEVEL, falling back to LOG_LEVEL, sets the level.
//   - LOG_FILE redirects output to a file.
func New(name string) *Logger {
	format := os.Getenv("LOG_FORMAT")
	dev := format == "development" || format == "console"

	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = colorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		cfg.EncoderConfig.EncodeLevel = lowercaseLevelEncoder
	}

	level := os.Getenv("PYINFER_LOG_LEVEL")
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level != "" {
		if l, err := ParseLevel(level); err != nil {
			fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		} else {
			cfg.Level.SetLevel(l)
		}
	}

	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	} else {
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.NameKey = "logger"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.Sampling = nil

	z, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("logging: build logger: %v", err))
	}
	return &Logger{Logger: z.Named(name), level: cfg.Level}
}

// Wrap adapts an existing zap logger. Its level cannot be changed through
// SetLevel.
func Wrap(z *zap.Logger) *Logger {
	return &Logger{Logger: z}
}

// ParseLevel parses a level name, including "trace".
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return TraceLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// SetLevel changes the level of l and of every logger derived from it.
func (l *Logger) SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if l.level == (zap.AtomicLevel{}) {
		return fmt.Errorf("logging: logger has a fixed level")
	}
	l.level.SetLevel(lvl)
	return nil
}

// Named returns a child logger.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), level: l.level}
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), level: l.level}
}

// Trace logs at TraceLevel.
func (l *Logger) Trace(msg string, fields ...zap.Field) {
	l.Log(TraceLevel, msg, fields...)
}

// Package loggingtest provides loggers for tests.
package loggingtest

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/jward/pyinfer/internal/logging"
)

func levelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if level == logging.TraceLevel {
		enc.AppendString("TRACE")
		return
	}
	zapcore.CapitalLevelEncoder(level, enc)
}

// NewTestLogger returns a logger writing every level, trace included, to
// t.Logf.
func NewTestLogger(t testing.TB) *logging.Logger {
	t.Helper()
	z := zaptest.NewLogger(t,
		zaptest.Level(logging.TraceLevel),
		zaptest.WrapOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core {
			enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
				TimeKey:        "T",
				LevelKey:       "L",
				NameKey:        "N",
				CallerKey:      "C",
				MessageKey:     "M",
				StacktraceKey:  "S",
				LineEnding:     zapcore.DefaultLineEnding,
				EncodeLevel:    levelEncoder,
				EncodeTime:     zapcore.ISO8601TimeEncoder,
				EncodeDuration: zapcore.StringDurationEncoder,
				EncodeCaller:   zapcore.ShortCallerEncoder,
			})
			return zapcore.NewCore(enc, zapcore.AddSync(zaptest.NewTestingWriter(t)), logging.TraceLevel)
		})),
	)
	return logging.Wrap(z)
}

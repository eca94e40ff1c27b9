package logger

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes leveled lines prefixed with the milliseconds elapsed since
// the logger was created:
//
//	[  1234.500] [Info] pool started
//
// A Logger is safe for concurrent use.
type Logger struct {
	zl    *zap.Logger
	level zap.AtomicLevel
}

// Option configures a Logger.
type Option func(*options)

type options struct {
	clock     zapcore.Clock
	errOutput io.Writer
}

// WithClock sets the clock used for entry timestamps and for the start time
// the elapsed prefix is measured from.
func WithClock(clock zapcore.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithErrorOutput sets where failures to write log entries are reported.
// The default is standard error.
func WithErrorOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.errOutput = w
		}
	}
}

// New creates a Logger writing to w that suppresses entries below level.
func New(w io.Writer, level Level, opts ...Option) *Logger {
	o := options{clock: zapcore.DefaultClock, errOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	atom := zap.NewAtomicLevelAt(level.zapLevel())
	encoder := zapcore.NewConsoleEncoder(encoderConfig(o.clock.Now()))
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), atom)

	return &Logger{
		zl:    zap.New(core, zap.WithClock(o.clock), zap.ErrorOutput(zapcore.Lock(zapcore.AddSync(o.errOutput)))),
		level: atom,
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{
		zl:    zap.NewNop(),
		level: zap.NewAtomicLevelAt(levelOff.zapLevel()),
	}
}

func encoderConfig(start time.Time) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "elapsed",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      encodeLevel,
		EncodeTime:       elapsedEncoder(start),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
}

func elapsedEncoder(start time.Time) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		ms := float64(t.Sub(start)) / float64(time.Millisecond)
		enc.AppendString(fmt.Sprintf("[%10.3f]", ms))
	}
}

// SetLevel changes the display threshold. It affects every logger derived
// from this one with Named or With.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// Level returns the current display threshold.
func (l *Logger) Level() Level {
	return Level(l.level.Level())
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l.zl.Core().Enabled(level.zapLevel())
}

// Named returns a child logger whose lines carry name after the level tag.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zl: l.zl.Named(name), level: l.level}
}

// With returns a child logger that appends fields to every line.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zl: l.zl.With(fields...), level: l.level}
}

// Zap exposes the underlying zap logger for callers that want zap's API.
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// Sync flushes buffered output.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// Log writes msg at level with optional structured fields.
func (l *Logger) Log(level Level, msg string, fields ...zap.Field) {
	if ce := l.zl.Check(level.zapLevel(), msg); ce != nil {
		ce.Write(fields...)
	}
}

// Logf formats and writes a message at level. Arguments are not formatted
// when level is below the threshold.
func (l *Logger) Logf(level Level, format string, args ...any) {
	if ce := l.zl.Check(level.zapLevel(), ""); ce != nil {
		ce.Message = fmt.Sprintf(format, args...)
		ce.Write()
	}
}

func (l *Logger) Verbosef(format string, args ...any) { l.Logf(LevelVerbose, format, args...) }
func (l *Logger) Debugf(format string, args ...any)   { l.Logf(LevelDebug, format, args...) }
func (l *Logger) Detailf(format string, args ...any)  { l.Logf(LevelDetail, format, args...) }
func (l *Logger) Tracef(format string, args ...any)   { l.Logf(LevelTrace, format, args...) }
func (l *Logger) Infof(format string, args ...any)    { l.Logf(LevelInfo, format, args...) }
func (l *Logger) Warningf(format string, args ...any) { l.Logf(LevelWarning, format, args...) }
func (l *Logger) Errorf(format string, args ...any)   { l.Logf(LevelError, format, args...) }

var std atomic.Pointer[Logger]

func init() {
	std.Store(New(os.Stdout, LevelInfo))
}

// Default returns the process-wide logger. It writes to stdout at LevelInfo
// until replaced with SetDefault.
func Default() *Logger {
	return std.Load()
}

// SetDefault replaces the process-wide logger. Call it during startup,
// before other goroutines log.
func SetDefault(l *Logger) {
	if l != nil {
		std.Store(l)
	}
}

// SetLevel changes the process-wide display threshold.
func SetLevel(level Level) {
	Default().SetLevel(level)
}

func Verbosef(format string, args ...any) { Default().Logf(LevelVerbose, format, args...) }
func Debugf(format string, args ...any)   { Default().Logf(LevelDebug, format, args...) }
func Detailf(format string, args ...any)  { Default().Logf(LevelDetail, format, args...) }
func Tracef(format string, args ...any)   { Default().Logf(LevelTrace, format, args...) }
func Infof(format string, args ...any)    { Default().Logf(LevelInfo, format, args...) }
func Warningf(format string, args ...any) { Default().Logf(LevelWarning, format, args...) }
func Errorf(format string, args ...any)   { Default().Logf(LevelError, format, args...) }

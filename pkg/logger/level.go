package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/vnykmshr/gopool/pkg/common/validation"
)

// Level is a log severity. Levels share zapcore's numbering so that
// LevelTrace, LevelInfo, LevelWarning and LevelError line up with zap's
// debug, info, warn and error levels; the three chattier levels sit below.
type Level int8

const (
	LevelVerbose Level = iota - 4
	LevelDebug
	LevelDetail
	LevelTrace
	LevelInfo
	LevelWarning
	LevelError
)

// levelOff is above every real level; loggers at levelOff print nothing.
const levelOff = LevelError + 1

var levelNames = map[Level]string{
	LevelVerbose: "Verbose",
	LevelDebug:   "Debug",
	LevelDetail:  "Detail",
	LevelTrace:   "Trace",
	LevelInfo:    "Info",
	LevelWarning: "Warning",
	LevelError:   "Error",
}

// Levels returns every level from lowest to highest.
func Levels() []Level {
	return []Level{LevelVerbose, LevelDebug, LevelDetail, LevelTrace, LevelInfo, LevelWarning, LevelError}
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int8(l))
}

// Tag renders the level the way it appears in a log line, e.g. "[Info]".
func (l Level) Tag() string {
	return "[" + l.String() + "]"
}

// ParseLevel converts a case-insensitive level name into a Level.
// "warn" is accepted as an alias for "warning".
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warn" {
		name = "warning"
	}

	allowed := make([]string, 0, len(levelNames))
	for _, l := range Levels() {
		allowed = append(allowed, strings.ToLower(l.String()))
	}
	if err := validation.ValidateOneOf("logger", "level", name, allowed); err != nil {
		return LevelInfo, err
	}

	for _, l := range Levels() {
		if strings.EqualFold(l.String(), name) {
			return l, nil
		}
	}
	return LevelInfo, nil
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so levels can be read
// straight from YAML and JSON config files.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l Level) zapLevel() zapcore.Level {
	return zapcore.Level(l)
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(Level(l).Tag())
}

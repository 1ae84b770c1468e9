// logging.go - structured logging interface for the recycler package.
//
// Logger is a small, backend-agnostic facade: Pool only ever calls Log with
// a Level and a set of Fields, so any structured logging library can back
// it. NewStumpyLogger wires up github.com/joeycumines/logiface with the
// github.com/joeycumines/stumpy zero-allocation JSON backend, which is this
// package's recommended production logger. A NoOpLogger is used by default.

package recycler

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Level is the severity of a log event. A Pool logs an Acquire with pooling
// disabled at Debug and a detected inconsistent handle at Error; drops are
// counted in Metrics, not logged.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Field is one structured key/value pair attached to a log line. Pool
// uses "pool" and "owner" as field keys for the pool's type name and the
// owning goroutine id, respectively.
type Field struct {
	Key   string
	Value any
}

func Str(key, val string) Field   { return Field{Key: key, Value: val} }
func Int(key string, val int) Field { return Field{Key: key, Value: val} }
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }
func Err(err error) Field         { return Field{Key: "err", Value: err} }

// Logger receives structured log events from a Pool. Implementations must
// be safe for concurrent use.
type Logger interface {
	Log(level Level, msg string, fields ...Field)
}

// NoOpLogger discards every event. It's the default for a Pool constructed
// without WithLogger.
type NoOpLogger struct{}

func (NoOpLogger) Log(Level, string, ...Field) {}

// StumpyLogger adapts a logiface.Logger[*stumpy.Event] to the Logger
// interface.
type StumpyLogger struct {
	logger *logiface.Logger[*stumpy.Event]
}

// NewStumpyLogger builds a StumpyLogger writing newline-delimited JSON via
// stumpy, passing opts through to stumpy.WithStumpy. minLevel filters out
// events below it before they reach stumpy at all (logiface.WithLevel).
func NewStumpyLogger(minLevel Level, opts ...stumpy.Option) *StumpyLogger {
	return &StumpyLogger{
		logger: stumpy.L.New(
			stumpy.L.WithStumpy(opts...),
			logiface.WithLevel[*stumpy.Event](minLevel.logifaceLevel()),
		),
	}
}

// logifaceLevel maps this package's four-level scheme onto logiface's
// syslog-derived Level, which NewStumpyLogger uses to filter events before
// they're ever built.
func (l Level) logifaceLevel() logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

func (s *StumpyLogger) Log(level Level, msg string, fields ...Field) {
	var b *logiface.Builder[*stumpy.Event]
	switch level {
	case LevelDebug:
		b = s.logger.Debug()
	case LevelWarn:
		b = s.logger.Warning()
	case LevelError:
		b = s.logger.Err()
	default:
		b = s.logger.Info()
	}
	if b == nil || !b.Enabled() {
		return
	}
	for _, f := range fields {
		b = b.Field(f.Key, f.Value)
	}
	b.Log(msg)
}

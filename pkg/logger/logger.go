package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog so services can hold a single field and log with
// key/value pairs without importing zerolog everywhere.
type Logger struct {
	zl zerolog.Logger
}

func New(level string) Logger {
	return NewWithWriter(os.Stderr, level)
}

func NewWithWriter(w io.Writer, level string) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return Logger{zl: zl}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() Logger {
	return Logger{zl: zerolog.Nop()}
}

func (l Logger) With(key string, value any) Logger {
	return Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l Logger) Debug(msg string, kv ...any) { l.emit(l.zl.Debug(), msg, kv) }
func (l Logger) Info(msg string, kv ...any)  { l.emit(l.zl.Info(), msg, kv) }
func (l Logger) Warn(msg string, kv ...any)  { l.emit(l.zl.Warn(), msg, kv) }
func (l Logger) Error(msg string, kv ...any) { l.emit(l.zl.Error(), msg, kv) }

func (l Logger) emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}

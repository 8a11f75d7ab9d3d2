package librarylog

import (
	"io"

	"github.com/rs/zerolog"
)

// zerologAdapter satisfies Logger by delegating to a zerolog.Logger, for
// callers who want structured JSON logs instead of the plain keyval writer.
type zerologAdapter struct {
	z zerolog.Logger
}

// NewZerologAdapter wraps a zerolog.Logger so it can be injected anywhere a Logger is expected.
func NewZerologAdapter(z zerolog.Logger) Logger {
	return &zerologAdapter{z: z}
}

// NewZerologWriter builds a zerolog-backed Logger writing JSON lines to w at or above minLevel.
func NewZerologWriter(w io.Writer, minLevel Level) Logger {
	return NewZerologAdapter(zerolog.New(w).Level(toZerologLevel(minLevel)).With().Timestamp().Logger())
}

func toZerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (a *zerologAdapter) event(e *zerolog.Event, msg string, keyvals ...any) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, _ := keyvals[i].(string)
		if key == "" {
			continue
		}
		e = e.Interface(key, keyvals[i+1])
	}
	e.Msg(msg)
}

func (a *zerologAdapter) Debug(msg string, keyvals ...any) { a.event(a.z.Debug(), msg, keyvals...) }
func (a *zerologAdapter) Info(msg string, keyvals ...any)  { a.event(a.z.Info(), msg, keyvals...) }
func (a *zerologAdapter) Warn(msg string, keyvals ...any)  { a.event(a.z.Warn(), msg, keyvals...) }
func (a *zerologAdapter) Error(msg string, keyvals ...any) { a.event(a.z.Error(), msg, keyvals...) }

func (a *zerologAdapter) With(keyvals ...any) Logger {
	ctx := a.z.With()
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, _ := keyvals[i].(string)
		if key == "" {
			continue
		}
		ctx = ctx.Interface(key, keyvals[i+1])
	}
	return &zerologAdapter{z: ctx.Logger()}
}

package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/lmittmann/tint"
)

var DebugMode bool

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	output io.Writer = os.Stderr
	base             = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05.000Z07:00",
		NoColor:    w != os.Stderr && w != os.Stdout,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindAny {
				if _, ok := a.Value.Any().(error); ok {
					return tint.Attr(9, a)
				}
			}
			return a
		},
	})
	return slog.New(handler)
}

// Init reads DEBUG from the environment. Without it, output is discarded so
// log lines never land on top of the TUI; servers call SetOutput afterwards.
func Init() {
	if os.Getenv("DEBUG") == "true" {
		DebugMode = true
		SetOutput(output)
	} else {
		SetOutput(io.Discard)
	}
}

// SetOutput sets the output destination for the process logger
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	if DebugMode {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
	base = newLogger(w)
}

// Logger returns the structured logger behind the printf helpers.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Debug(format string, v ...interface{}) {
	if DebugMode {
		Logger().Debug(fmt.Sprintf(format, v...))
	}
}

func Info(format string, v ...interface{}) {
	Logger().Info(fmt.Sprintf(format, v...))
}

func Warn(format string, v ...interface{}) {
	Logger().Warn(fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	Logger().Error(fmt.Sprintf(format, v...))
}

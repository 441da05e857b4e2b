package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(New(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")))
}

// New builds a logger writing to w. Format "json" selects the JSON
// handler, anything else the tint console handler.
func New(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}))
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLogger replaces the process logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	return logger.Load()
}

func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// WithComponent returns a logger tagged with component.
func WithComponent(component string) *slog.Logger {
	return Logger().With("component", component)
}

func DebugWithComponent(component, msg string, args ...any) {
	WithComponent(component).Debug(msg, args...)
}

func InfoWithComponent(component, msg string, args ...any) {
	WithComponent(component).Info(msg, args...)
}

func WarnWithComponent(component, msg string, args ...any) {
	WithComponent(component).Warn(msg, args...)
}

func ErrorWithComponent(component, msg string, args ...any) {
	WithComponent(component).Error(msg, args...)
}

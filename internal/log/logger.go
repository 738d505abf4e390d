// Package log provides the leveled logger used across the backend,
// backed by kataras/golog.
package log

import (
	"github.com/kataras/golog"
)

// Logger is a thin facade over golog so call sites stay printf-style.
type Logger struct {
	l *golog.Logger
}

// New creates a logger at the given level. The level uses the LOG_LEVEL
// vocabulary (DEBUG, INFO, WARNING, ERROR); anything unrecognized falls
// back to info.
func New(level string) *Logger {
	l := golog.New()
	l.SetLevel(gologLevel(level))
	return &Logger{l: l}
}

func gologLevel(level string) string {
	switch level {
	case "DEBUG":
		return "debug"
	case "INFO":
		return "info"
	case "WARNING":
		return "warn"
	case "ERROR":
		return "error"
	default:
		return "info"
	}
}

// SetLevel changes the log level at runtime.
func (lg *Logger) SetLevel(level string) {
	lg.l.SetLevel(gologLevel(level))
}

func (lg *Logger) Debug(format string, v ...any) {
	lg.l.Debugf(format, v...)
}

func (lg *Logger) Info(format string, v ...any) {
	lg.l.Infof(format, v...)
}

func (lg *Logger) Warn(format string, v ...any) {
	lg.l.Warnf(format, v...)
}

func (lg *Logger) Error(format string, v ...any) {
	lg.l.Errorf(format, v...)
}

func (lg *Logger) Fatal(format string, v ...any) {
	lg.l.Fatalf(format, v...)
}

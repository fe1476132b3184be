// Package rlog is the structured-logging chokepoint every component logs
// through, grounded on the teacher's textcolor.go+dw_printf pattern of
// funneling every subsystem's diagnostics through one call — here
// expressed with github.com/charmbracelet/log instead of an ANSI
// color-code printf wrapper, per SPEC_FULL.md §2.1.
package rlog

import (
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is a component-scoped logger: every record it emits carries a
// "component" field.
type Logger struct {
	l *charmlog.Logger
}

var base = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: true,
})

// SetLevel adjusts the shared base logger's level (cmd/penguin-mother's
// -log-level flag / internal/config's LogLevel).
func SetLevel(level string) {
	parsed, err := charmlog.ParseLevel(level)
	if err != nil {
		base.Warnf("unrecognized log level %q, keeping %s", level, base.GetLevel())
		return
	}
	base.SetLevel(parsed)
}

// New returns a Logger scoped to component.
func New(component string) *Logger {
	return &Logger{l: base.With("component", component)}
}

func (r *Logger) Debug(msg string, kv ...any) { r.l.Debug(msg, kv...) }
func (r *Logger) Info(msg string, kv ...any)   { r.l.Info(msg, kv...) }
func (r *Logger) Warn(msg string, kv ...any)   { r.l.Warn(msg, kv...) }
func (r *Logger) Error(msg string, kv ...any)  { r.l.Error(msg, kv...) }

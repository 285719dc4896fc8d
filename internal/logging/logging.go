// Package logging provides the structured logger shared by the server, the
// storage layer and the command line. Entries carry a message plus a field
// map and are rendered as text for development or JSON for production.
package logging

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Format selects how entries are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Logger writes leveled entries with a field map.
type Logger struct {
	base *log.Logger
}

var (
	mu            sync.RWMutex
	defaultLogger = New(os.Stderr, "info", FormatText)
)

// New builds a Logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level string, format Format) *Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{
		ReportTimestamp: true,
		Level:           parseLevel(level),
	}
	if format == FormatJSON {
		opts.Formatter = log.JSONFormatter
	}
	return &Logger{base: log.NewWithOptions(w, opts)}
}

func parseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Default returns the process-wide logger.
func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{base: l.base.With(keyvals(fields)...)}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields map[string]any) {
	l.base.Debug(msg, keyvals(fields)...)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]any) {
	l.base.Info(msg, keyvals(fields)...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields map[string]any) {
	l.base.Warn(msg, keyvals(fields)...)
}

// Error logs an error message. err may be nil.
func (l *Logger) Error(msg string, fields map[string]any, err error) {
	kv := keyvals(fields)
	if err != nil {
		kv = append(kv, "err", err.Error())
	}
	l.base.Error(msg, kv...)
}

// keyvals flattens fields in key order so text output is stable.
func keyvals(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	return kv
}

// Global logging functions

func Debug(msg string, fields map[string]any) { Default().Debug(msg, fields) }

func Info(msg string, fields map[string]any) { Default().Info(msg, fields) }

func Warn(msg string, fields map[string]any) { Default().Warn(msg, fields) }

func Error(msg string, fields map[string]any, err error) { Default().Error(msg, fields, err) }

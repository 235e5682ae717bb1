package logger

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger wraps charm/log for structured logging
type Logger struct {
	*log.Logger
}

// New creates a new logger with the given output
func New(w io.Writer) *Logger {
	return NewWithLevel(w, log.InfoLevel)
}

// NewWithLevel creates a logger with a specific level
func NewWithLevel(w io.Writer, level log.Level) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})
	return &Logger{Logger: l}
}

// NewFileLogger creates a logger that appends to a file
func NewFileLogger(path string, level log.Level) (*Logger, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		f.Close()
	}

	return NewWithLevel(f, level), cleanup, nil
}

// Discard returns a logger that discards all output
func Discard() *Logger {
	return New(io.Discard)
}

// ParseLevel converts a level name such as "debug" into a log level
func ParseLevel(name string) (log.Level, error) {
	return log.ParseLevel(name)
}

// ParseCompleted logs a parsed document
func (l *Logger) ParseCompleted(file string, nodes int, duration time.Duration) {
	l.Debug("document parsed",
		"file", file,
		"nodes", nodes,
		"duration", duration.Round(time.Microsecond))
}

// FileWritten logs a document written back to disk
func (l *Logger) FileWritten(file string, nodes int) {
	l.Info("file written",
		"file", file,
		"nodes", nodes)
}

// NodesChanged logs how many nodes a command modified
func (l *Logger) NodesChanged(file, operation string, count int) {
	l.Info("nodes changed",
		"file", file,
		"operation", operation,
		"count", count)
}

// IndexStarted logs the start of an index run
func (l *Logger) IndexStarted(dir string) {
	l.Info("index started", "dir", dir)
}

// IndexCompleted logs the completion of an index run
func (l *Logger) IndexCompleted(filesIndexed, skipped, errors int, duration time.Duration) {
	l.Info("index completed",
		"files_indexed", filesIndexed,
		"skipped", skipped,
		"errors", errors,
		"duration", duration.Round(time.Millisecond))
}

// FileError logs an error for a specific file
func (l *Logger) FileError(file string, err error) {
	l.Error("file error",
		"file", file,
		"error", err)
}

// StateError logs a state-related error
func (l *Logger) StateError(operation string, err error) {
	l.Error("state error",
		"operation", operation,
		"error", err)
}

// DuplicateID logs an ID property claimed by more than one node
func (l *Logger) DuplicateID(id, first, second string) {
	l.Warn("duplicate id",
		"id", id,
		"first", first,
		"second", second)
}

// ConfigLoaded logs successful config loading
func (l *Logger) ConfigLoaded(path, orgDir string, workers int) {
	l.Debug("config loaded",
		"path", path,
		"org_dir", orgDir,
		"workers", workers)
}

// Skipped logs when a file is skipped
func (l *Logger) Skipped(file, reason string) {
	l.Debug("file skipped",
		"file", file,
		"reason", reason)
}

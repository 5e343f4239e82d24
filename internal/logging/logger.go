// Package logging defines the narrow logging capability the core depends on.
// The core never touches log files or sinks directly; it only sees this
// interface.
package logging

import "github.com/sirupsen/logrus"

// Fields carries structured context for a log entry.
type Fields map[string]interface{}

// Logger is the capability consumed by the import and synchronization core.
// Implementations must never fail in a way that aborts the caller.
type Logger interface {
	Success(msg string, fields Fields)
	Warning(msg string, fields Fields)
	Error(msg string, fields Fields)
	Exception(err error, msg string)
	Statistics(stats Fields)
}

// LogrusLogger implements Logger over a logrus entry, the logging stack used
// across the platform services.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps a configured logrus logger.
func NewLogrusLogger(logger *logrus.Logger, component string) *LogrusLogger {
	return &LogrusLogger{entry: logger.WithField("component", component)}
}

func (l *LogrusLogger) Success(msg string, fields Fields) {
	l.entry.WithFields(logrus.Fields(fields)).WithField("outcome", "success").Info(msg)
}

func (l *LogrusLogger) Warning(msg string, fields Fields) {
	l.entry.WithFields(logrus.Fields(fields)).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, fields Fields) {
	l.entry.WithFields(logrus.Fields(fields)).Error(msg)
}

func (l *LogrusLogger) Exception(err error, msg string) {
	l.entry.WithError(err).Error(msg)
}

func (l *LogrusLogger) Statistics(stats Fields) {
	l.entry.WithFields(logrus.Fields(stats)).Info("statistics")
}

// NopLogger discards everything. Useful as a default and in tests.
type NopLogger struct{}

func (NopLogger) Success(string, Fields)  {}
func (NopLogger) Warning(string, Fields)  {}
func (NopLogger) Error(string, Fields)    {}
func (NopLogger) Exception(error, string) {}
func (NopLogger) Statistics(Fields)       {}

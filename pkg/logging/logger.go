package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// log field keys
const (
	// RepoFieldKey repository root directory (string)
	RepoFieldKey = "repo"
	// RefFieldKey ref name being read or moved (string)
	RefFieldKey = "ref"
	// CommitFieldKey commit digest (string)
	CommitFieldKey = "commit"
	// BranchFieldKey branch name (string)
	BranchFieldKey = "branch"
	// PathFieldKey repo-relative file path (string)
	PathFieldKey = "path"
	// ServiceNameFieldKey component emitting the entry (string, ex: merge)
	ServiceNameFieldKey = "service_name"
)

var defaultLogger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		QuoteEmptyFields: true,
	})
	return l
}

type Fields map[string]interface{}

// Level returns the current level of the default logger.
func Level() string {
	return defaultLogger.GetLevel().String()
}

// SetLevel sets the default logger level. "none" discards all output.
func SetLevel(level string) error {
	switch strings.ToLower(level) {
	case "null", "none":
		defaultLogger.SetLevel(logrus.PanicLevel)
		defaultLogger.SetOutput(io.Discard)
		return nil
	case "":
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	defaultLogger.SetLevel(lvl)
	return nil
}

// SetOutput redirects the default logger.
func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

// SetOutputFormat selects the "text" or "json" formatter.
func SetOutputFormat(format string) error {
	var formatter logrus.Formatter
	switch strings.ToLower(format) {
	case "", "text":
		formatter = &logrus.TextFormatter{
			FullTimestamp:          true,
			DisableLevelTruncation: true,
			PadLevelText:           true,
			QuoteEmptyFields:       true,
		}
	case "json":
		formatter = &logrus.JSONFormatter{}
	default:
		return fmt.Errorf("log format: unknown format %q", format)
	}
	defaultLogger.SetFormatter(formatter)
	return nil
}

type Logger interface {
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
	Trace(args ...interface{})
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	IsTracing() bool
	IsDebugging() bool
}

type logrusEntryWrapper struct {
	e *logrus.Entry
}

func (l *logrusEntryWrapper) WithField(key string, value interface{}) Logger {
	return &logrusEntryWrapper{l.e.WithField(key, value)}
}

func (l *logrusEntryWrapper) WithFields(fields Fields) Logger {
	return &logrusEntryWrapper{l.e.WithFields(logrus.Fields(fields))}
}

func (l *logrusEntryWrapper) WithError(err error) Logger {
	return &logrusEntryWrapper{l.e.WithError(err)}
}

func (l *logrusEntryWrapper) Trace(args ...interface{}) {
	l.e.Trace(args...)
}

func (l *logrusEntryWrapper) Debug(args ...interface{}) {
	l.e.Debug(args...)
}

func (l *logrusEntryWrapper) Info(args ...interface{}) {
	l.e.Info(args...)
}

func (l *logrusEntryWrapper) Warn(args ...interface{}) {
	l.e.Warn(args...)
}

func (l *logrusEntryWrapper) Error(args ...interface{}) {
	l.e.Error(args...)
}

func (l *logrusEntryWrapper) Tracef(format string, args ...interface{}) {
	l.e.Tracef(format, args...)
}

func (l *logrusEntryWrapper) Debugf(format string, args ...interface{}) {
	l.e.Debugf(format, args...)
}

func (l *logrusEntryWrapper) Infof(format string, args ...interface{}) {
	l.e.Infof(format, args...)
}

func (l *logrusEntryWrapper) Warnf(format string, args ...interface{}) {
	l.e.Warnf(format, args...)
}

func (l *logrusEntryWrapper) Errorf(format string, args ...interface{}) {
	l.e.Errorf(format, args...)
}

func (l *logrusEntryWrapper) IsTracing() bool {
	return l.e.Logger.IsLevelEnabled(logrus.TraceLevel)
}

func (l *logrusEntryWrapper) IsDebugging() bool {
	return l.e.Logger.IsLevelEnabled(logrus.DebugLevel)
}

// Default returns a Logger backed by the process-wide logrus logger.
func Default() Logger {
	return &logrusEntryWrapper{e: logrus.NewEntry(defaultLogger)}
}

// Dummy returns a Logger that discards everything. Tests use it.
func Dummy() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logrusEntryWrapper{e: logrus.NewEntry(l)}
}

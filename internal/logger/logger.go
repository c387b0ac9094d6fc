package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging interface used across the service
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
}

// Config controls the process-wide logger
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // text or json
	Output io.Writer // defaults to stderr
}

type entryLogger struct {
	entry *logrus.Entry
}

var (
	mu   sync.RWMutex
	base = newBase()
)

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	return l
}

// Init reconfigures the process-wide logger
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if cfg.Level != "" {
		level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		base.SetLevel(level)
	}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	if cfg.Output != nil {
		base.SetOutput(cfg.Output)
	}

	return nil
}

// SetVerbosity maps the CLI flags onto levels: --verbose shows debug,
// --debug shows info, neither keeps warnings and errors only.
func SetVerbosity(debug, verbose bool) {
	mu.Lock()
	defer mu.Unlock()

	switch {
	case verbose:
		base.SetLevel(logrus.DebugLevel)
	case debug:
		base.SetLevel(logrus.InfoLevel)
	}
}

// IsDebugEnabled reports whether debug output is on
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return base.IsLevelEnabled(logrus.DebugLevel)
}

func root() *entryLogger {
	mu.RLock()
	defer mu.RUnlock()
	return &entryLogger{entry: logrus.NewEntry(base)}
}

func (l *entryLogger) log(level logrus.Level, msg string, args []interface{}) {
	if len(args) > 0 {
		l.entry.Logf(level, msg, args...)
		return
	}
	l.entry.Log(level, msg)
}

func (l *entryLogger) Debug(msg string, args ...interface{}) { l.log(logrus.DebugLevel, msg, args) }
func (l *entryLogger) Info(msg string, args ...interface{})  { l.log(logrus.InfoLevel, msg, args) }
func (l *entryLogger) Warn(msg string, args ...interface{})  { l.log(logrus.WarnLevel, msg, args) }
func (l *entryLogger) Error(msg string, args ...interface{}) { l.log(logrus.ErrorLevel, msg, args) }

func (l *entryLogger) WithField(key string, value interface{}) Logger {
	return &entryLogger{entry: l.entry.WithField(key, value)}
}

func (l *entryLogger) WithFields(fields map[string]interface{}) Logger {
	return &entryLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *entryLogger) WithError(err error) Logger {
	return &entryLogger{entry: l.entry.WithError(err)}
}

// Debug logs at debug level on the root logger
func Debug(msg string, args ...interface{}) { root().Debug(msg, args...) }

// Info logs at info level on the root logger
func Info(msg string, args ...interface{}) { root().Info(msg, args...) }

// Warn logs at warn level on the root logger
func Warn(msg string, args ...interface{}) { root().Warn(msg, args...) }

// Error logs at error level on the root logger
func Error(msg string, args ...interface{}) { root().Error(msg, args...) }

// WithField returns a root logger carrying one field
func WithField(key string, value interface{}) Logger {
	return root().WithField(key, value)
}

// WithFields returns a root logger carrying fields
func WithFields(fields map[string]interface{}) Logger {
	return root().WithFields(fields)
}

// WithError returns a root logger carrying err
func WithError(err error) Logger {
	return root().WithError(err)
}

package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger represents a structured logger
type Logger struct {
	logger zerolog.Logger
}

// Fields represents log fields
type Fields map[string]interface{}

var (
	// Default is the default logger instance
	Default *Logger
)

// Init initializes the logger with the given configuration
func Init() {
	InitWithWriter(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})
}

// InitWithWriter initializes the default logger on top of an arbitrary writer.
func InitWithWriter(w io.Writer) {
	level := getLogLevel()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()

	Default = &Logger{logger: logger}

	Default.Debug().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// getLogLevel returns the log level from environment variable
func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("WORKER_ENVIRONMENT") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WithFields creates a new logger with fields
func (l *Logger) WithFields(fields Fields) *Logger {
	newLogger := l.logger.With()
	for k, v := range fields {
		newLogger = newLogger.Interface(k, v)
	}
	return &Logger{logger: newLogger.Logger()}
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// Debug returns a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info returns an info event
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn returns a warn event
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error returns an error event
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

func ensure() {
	if Default == nil {
		Init()
	}
}

// Get returns the default logger, initializing it on first use.
func Get() *Logger {
	ensure()
	return Default
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	ensure()
	return Default.logger.GetLevel() <= zerolog.DebugLevel
}

// ForCrawler creates a logger for a specific marketplace crawler
func ForCrawler(provider string) *Logger {
	ensure()
	return Default.WithField("crawler", provider)
}

// ForWorker creates a logger for the worker
func ForWorker() *Logger {
	ensure()
	return Default.WithField("component", "worker")
}

// ForPublisher creates a logger for an output sink
func ForPublisher(sink string) *Logger {
	ensure()
	return Default.WithFields(Fields{"component": "publisher", "sink": sink})
}

// ForEmitter creates a logger for the batched emitter
func ForEmitter() *Logger {
	ensure()
	return Default.WithField("component", "emitter")
}

// ForSession creates a logger for the identity pool
func ForSession() *Logger {
	ensure()
	return Default.WithField("component", "session")
}

// ForProxy creates a logger for the proxy loader
func ForProxy() *Logger {
	ensure()
	return Default.WithField("component", "proxy")
}

// ForCache creates a logger for the cache
func ForCache() *Logger {
	ensure()
	return Default.WithField("component", "cache")
}

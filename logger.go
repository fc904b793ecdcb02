package ipc

import (
	"context"
	"log/slog"
)

// Logger is the interface for this package's logging needs.
// It's designed to be simple and easy to adapt to various logging libraries.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...any)

	// Info logs an informational message with optional key-value pairs
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning message with optional key-value pairs
	Warn(msg string, keysAndValues ...any)

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...any)

	// WithContext returns a logger with the given context
	WithContext(ctx context.Context) Logger

	// WithFields returns a logger with the given fields attached
	WithFields(keysAndValues ...any) Logger
}

// NoOpLogger is a logger that discards all log messages
type NoOpLogger struct{}

var _ Logger = NoOpLogger{}

func (NoOpLogger) Debug(msg string, keysAndValues ...any)   {}
func (NoOpLogger) Info(msg string, keysAndValues ...any)    {}
func (NoOpLogger) Warn(msg string, keysAndValues ...any)    {}
func (NoOpLogger) Error(msg string, keysAndValues ...any)   {}
func (n NoOpLogger) WithContext(ctx context.Context) Logger { return n }
func (n NoOpLogger) WithFields(keysAndValues ...any) Logger { return n }

// SlogAdapter adapts slog.Logger to the Logger interface
type SlogAdapter struct {
	logger *slog.Logger
}

var _ Logger = (*SlogAdapter)(nil)

// NewSlogAdapter creates a new adapter for slog.Logger
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (s *SlogAdapter) Debug(msg string, keysAndValues ...any) {
	s.logger.Debug(msg, keysAndValues...)
}

func (s *SlogAdapter) Info(msg string, keysAndValues ...any) {
	s.logger.Info(msg, keysAndValues...)
}

func (s *SlogAdapter) Warn(msg string, keysAndValues ...any) {
	s.logger.Warn(msg, keysAndValues...)
}

func (s *SlogAdapter) Error(msg string, keysAndValues ...any) {
	s.logger.Error(msg, keysAndValues...)
}

func (s *SlogAdapter) WithContext(ctx context.Context) Logger {
	// slog doesn't have built-in context support in the same way
	// You could extract values from context and add as fields if needed
	return s
}

func (s *SlogAdapter) WithFields(keysAndValues ...any) Logger {
	// Create a new logger with additional fields
	args := make([]any, 0, len(keysAndValues))
	args = append(args, keysAndValues...)
	newLogger := s.logger.With(args...)
	return &SlogAdapter{logger: newLogger}
}

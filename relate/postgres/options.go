package postgres

import (
	"github.com/pagekeep/pagekeep/relate"
)

// Option defines a functional option for configuring a Source.
type Option func(*Source) error

// WithLogger sets the logger for the Source.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Warn level: non-critical issues like row-close failures
// Error level: query build, execution and scan failures.
func WithLogger(logger relate.Logger) Option {
	return func(s *Source) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Source, which
// receives the same messages as the plain logger but with context information
// for automatic trace/span correlation.
func WithContextualLogger(logger relate.ContextualLogger) Option {
	return func(s *Source) error {
		s.contextualLogger = logger
		return nil
	}
}

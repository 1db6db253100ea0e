package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a dataset, model artifact or training run does not exist
	ErrNotFound = errors.New("not found")

	// ErrConfiguration is returned for invalid or unsupported parameter values
	ErrConfiguration = errors.New("invalid configuration")
)

// ConfigurationError describes a rejected parameter. It matches ErrConfiguration with errors.Is.
type ConfigurationError struct {
	Op      string // operation that rejected the value, e.g. "BuildFeatureMatrix"
	Field   string // offending column, flag or option
	Message string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Is reports whether target is ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError creates a ConfigurationError
func NewConfigurationError(op, field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Op: op, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError wraps ErrNotFound with the missing resource
func NotFoundError(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}

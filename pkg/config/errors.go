package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEnv is returned when a required environment variable is unset.
	ErrMissingEnv = errors.New("required environment variable not set")
)

// ValidationError wraps a component-scoped configuration validation failure.
type ValidationError struct {
	Component string
	Field     string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s config: field %q: %v", e.Component, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError constructs a ValidationError.
func NewValidationError(component, field string, err error) error {
	return &ValidationError{Component: component, Field: field, Err: err}
}

// LoadError wraps a failure to read or parse a configuration source (file
// or embedded seed data).
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load config from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError constructs a LoadError.
func NewLoadError(source string, err error) error {
	return &LoadError{Source: source, Err: err}
}

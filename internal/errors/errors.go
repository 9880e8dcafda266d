// Package errors consolidates error definitions for candlestore.
//
// This package provides:
// - Sentinel errors for all error conditions
// - Error category checking functions (not-found, input-shape, corruption)
// - Error wrapping utilities and constructors with context
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Not found
	ErrNotFound = errors.New("dataset not found")

	// Input shape errors - raised before any I/O
	ErrEmptyInput       = errors.New("input has no rows")
	ErrMissingTimestamp = errors.New("row has no timestamp")
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrInvalidTimeframe = errors.New("invalid timeframe")
	ErrUnknownColumn    = errors.New("unknown column")
	ErrSchemeMismatch   = errors.New("partition scheme mismatch")

	// Data errors
	ErrCorrupt = errors.New("corrupt dataset file")

	// Configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err indicates a missing dataset or symbol.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInputShape returns true if err indicates malformed caller input,
// detected before any file was touched.
func IsInputShape(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrMissingTimestamp) ||
		errors.Is(err, ErrInvalidSymbol) ||
		errors.Is(err, ErrInvalidTimeframe) ||
		errors.Is(err, ErrUnknownColumn) ||
		errors.Is(err, ErrSchemeMismatch)
}

// IsCorrupt returns true if err indicates an undecodable on-disk file.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error for a (symbol, timeframe) dataset.
func NewNotFound(symbol, timeframe string) error {
	return fmt.Errorf("dataset %s/%s: %w", symbol, timeframe, ErrNotFound)
}

// NewInvalidSymbol creates an invalid-symbol error with a reason.
func NewInvalidSymbol(symbol, reason string) error {
	return fmt.Errorf("symbol %q: %s: %w", symbol, reason, ErrInvalidSymbol)
}

// NewInvalidTimeframe creates an invalid-timeframe error with a reason.
func NewInvalidTimeframe(timeframe, reason string) error {
	return fmt.Errorf("timeframe %q: %s: %w", timeframe, reason, ErrInvalidTimeframe)
}

// NewUnknownColumn creates an unknown-column error.
func NewUnknownColumn(column string) error {
	return fmt.Errorf("column %q: %w", column, ErrUnknownColumn)
}

// NewCorrupt creates a corruption error for a file path.
func NewCorrupt(path string, err error) error {
	return fmt.Errorf("%s: %v: %w", path, err, ErrCorrupt)
}

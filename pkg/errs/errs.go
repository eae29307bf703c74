// Package errs defines the failure kinds shared across the pipeline.
// Every expected failure (missing file, degenerate geometry, bad parameter)
// is reported as a wrapped sentinel so callers can classify with errors.Is
// instead of matching message strings.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrIO marks a missing or unreadable file or directory.
	ErrIO = errors.New("io failure")
	// ErrFormat marks unparseable slice metadata, a corrupt mesh file or
	// an unrecognized record structure.
	ErrFormat = errors.New("format failure")
	// ErrGeometry marks a degenerate or empty geometric result.
	ErrGeometry = errors.New("geometry failure")
	// ErrValidation marks a caller-supplied parameter outside the contract.
	ErrValidation = errors.New("validation failure")
)

// IOf returns an ErrIO wrapping the formatted message.
func IOf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrIO, args)...)
}

// Formatf returns an ErrFormat wrapping the formatted message.
func Formatf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrFormat, args)...)
}

// Geometryf returns an ErrGeometry wrapping the formatted message.
func Geometryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrGeometry, args)...)
}

// Validationf returns an ErrValidation wrapping the formatted message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrValidation, args)...)
}

// Kind reports which sentinel err wraps, or nil if it carries none.
func Kind(err error) error {
	for _, k := range []error{ErrIO, ErrFormat, ErrGeometry, ErrValidation} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

func prepend(head error, args []interface{}) []interface{} {
	return append([]interface{}{head}, args...)
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataFormat signals a malformed or missing corpus or model file.
	ErrDataFormat = errors.New("data format error")
	// ErrTraining signals an empty or degenerate training corpus.
	ErrTraining = errors.New("training error")
	// ErrNotFound signals an unknown title or identifier.
	ErrNotFound = errors.New("not found")
	// ErrIO signals a storage failure.
	ErrIO = errors.New("io error")
	// ErrEmptyQuery signals a query with neither title nor text.
	ErrEmptyQuery = errors.New("either a title or a summary must be provided")
)

// DataFormatError wraps ErrDataFormat with the offending path.
type DataFormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DataFormatError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrDataFormat.Error(), e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataFormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDataFormat, e.Err}
	}
	return []error{ErrDataFormat}
}

// NewDataFormatError creates a data format error for path.
func NewDataFormatError(path, reason string, err error) error {
	return &DataFormatError{Path: path, Reason: reason, Err: err}
}

// NotFoundError wraps ErrNotFound with the query that did not resolve.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("book %q %s", e.Query, ErrNotFound.Error())
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound creates a not-found error for query.
func NewNotFound(query string) error {
	return &NotFoundError{Query: query}
}

// IOError wraps ErrIO with the path that failed.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrIO.Error(), e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// NewIOError creates a storage error for path.
func NewIOError(path string, err error) error {
	return &IOError{Path: path, Err: err}
}

// Trainingf creates a training error with a formatted reason.
func Trainingf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTraining, fmt.Sprintf(format, args...))
}

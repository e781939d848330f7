package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidItem is returned for item ids that cannot exist.
	ErrInvalidItem = errors.New("item id must be positive")

	// ErrOutOfRange marks a parameter outside its allowed range.
	ErrOutOfRange = errors.New("out of range")

	// ErrNoElementText is returned when an element text id has no row.
	ErrNoElementText = errors.New("element text not found")
)

// ParamError wraps a rejected feature parameter so callers can report the
// offending field.
type ParamError struct {
	Field string
	Value any
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("param %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

package services

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when a required CSV header is absent.
	ErrMissingColumn = errors.New("missing column")

	// ErrEmptyValue is returned when a required cell is blank.
	ErrEmptyValue = errors.New("empty value")
)

// ParseError reports a malformed cell in one of the input files.
type ParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("line %d: column %s: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("line %d: column %s: cannot parse %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

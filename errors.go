package cw

import (
	"errors"
	"fmt"
)

// Parse errors. Every *ParseError wraps one of these so callers can use
// errors.Is to classify failures.
var (
	ErrUnexpectedCharacter = errors.New("unexpected character")
	ErrUnterminatedString  = errors.New("unterminated string")
	ErrUnterminatedMaths   = errors.New("unterminated inline maths")
	ErrInvalidNumber       = errors.New("invalid number")
	ErrUnexpectedToken     = errors.New("unexpected token")
	ErrUnexpectedEOF       = errors.New("unexpected end of input")
	ErrUnclosedBlock       = errors.New("unclosed block")
	ErrInvalidColor        = errors.New("invalid color")
	ErrTooDeep             = errors.New("nesting too deep")
)

// ParseError is a syntax error at a source location. Parsing does not recover:
// the first error fails the whole file.
type ParseError struct {
	Span   Span
	Line   int // 1-based
	Column int // 1-based
	Msg    string

	err error
}

func newParseError(span Span, sentinel error, format string, args ...any) *ParseError {
	return &ParseError{
		Span:   span,
		Line:   span.Start.Line,
		Column: span.Start.Column,
		Msg:    fmt.Sprintf(format, args...),
		err:    sentinel,
	}
}

// NewParseError builds a ParseError for parsers layered on the script lexer.
func NewParseError(span Span, sentinel error, format string, args ...any) *ParseError {
	return newParseError(span, sentinel, format, args...)
}

func (e *ParseError) Error() string {
	if e.Span.Start.Filename != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Span.Start.Filename, e.Line, e.Column, e.Msg)
	}

	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// Unwrap returns the sentinel error classifying this failure.
func (e *ParseError) Unwrap() error {
	return e.err
}

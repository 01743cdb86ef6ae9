package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for navigation failures.
var (
	ErrUnknownKey       = errors.New("unknown key")
	ErrInvalidLink      = errors.New("invalid link")
	ErrInvalidScopePath = errors.New("invalid scope path")
)

// KeyError reports a key the block does not accept.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string { return fmt.Sprintf("unknown key '%s'", e.Key) }

func (e *KeyError) Unwrap() error { return ErrUnknownKey }

// LinkError reports a link used from a scope it does not accept.
type LinkError struct {
	Link  string
	Scope string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("invalid link '%s' from scope '%s'", e.Link, e.Scope)
}

func (e *LinkError) Unwrap() error { return ErrInvalidLink }

// PathError reports the first failing step of a dotted scope path.
type PathError struct {
	Path string

	// Step is the zero-based index of the failing step, Name its text.
	Step int
	Name string

	// Available lists the frames and links usable at that step.
	Available []string

	Err error
}

func (e *PathError) Error() string {
	msg := fmt.Sprintf("invalid scope path '%s': step '%s'", e.Path, e.Name)
	if e.Err != nil && !errors.Is(e.Err, ErrInvalidScopePath) {
		msg += ": " + e.Err.Error()
	}

	if len(e.Available) > 0 && len(e.Available) <= 12 {
		msg += " (expected one of " + strings.Join(e.Available, ", ") + ")"
	}

	return msg
}

func (e *PathError) Unwrap() []error { return []error{ErrInvalidScopePath, e.Err} }

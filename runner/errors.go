package runner

import "errors"

var (
	// ErrMaxFailures stops a run once enough files have failed.
	ErrMaxFailures = errors.New("maximum failures reached")
	// ErrNoAnalyzer is returned when Run is called without an analyzer.
	ErrNoAnalyzer = errors.New("runner: no analyzer configured")
	// ErrFilterNotBool is returned when a filter expression is not a predicate.
	ErrFilterNotBool = errors.New("filter must evaluate to a boolean")
)

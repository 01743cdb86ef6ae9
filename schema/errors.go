package schema

import (
	"fmt"

	"github.com/rlch/cw"
)

// ErrorKind classifies a ConversionError.
type ErrorKind int

// Conversion error kinds.
const (
	InvalidCardinality ErrorKind = iota
	InvalidSubtypeFormat
	InvalidEnumFormat
	InvalidAliasFormat
	InvalidComplexEnum
	InvalidLinkFormat
	InvalidScopeFormat
	UnsupportedFeature
	MissingReference
	InvalidTypeDefinition
	InvalidRuleDefinition
)

var errorKindNames = [...]string{
	InvalidCardinality:    "invalid cardinality",
	InvalidSubtypeFormat:  "invalid subtype",
	InvalidEnumFormat:     "invalid enum",
	InvalidAliasFormat:    "invalid alias",
	InvalidComplexEnum:    "invalid complex enum",
	InvalidLinkFormat:     "invalid link",
	InvalidScopeFormat:    "invalid scope",
	UnsupportedFeature:    "unsupported",
	MissingReference:      "missing reference",
	InvalidTypeDefinition: "invalid type definition",
	InvalidRuleDefinition: "invalid rule",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}

	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ConversionError is a problem found while lowering a schema. Conversion
// errors are collected on the Analyzer; the rest of the schema stays usable.
type ConversionError struct {
	Kind   ErrorKind
	Detail string
	Span   cw.Span
}

func (e *ConversionError) Error() string {
	if e.Span.Start.Filename != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Span.Start.Filename, e.Span.Start.Line, e.Span.Start.Column, e.Kind, e.Detail)
	}

	return e.Kind.String() + ": " + e.Detail
}

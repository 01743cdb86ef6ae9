// Package resolver computes the expected type of script keys and values.
//
// Given a ScopedType (a schema type plus the scope it is evaluated in) and a
// key, Resolver.Property returns the ScopedType of the key's value: it looks
// the key up in active subtypes, named properties and patterns, resolves
// alias_match_left against the key, applies scope pushes and falls back to
// scope frames and links. A Resolver memoises answers and is meant to live
// for one query.
package resolver

import (
	"slices"
	"strings"

	"github.com/rlch/cw/schema"
	"github.com/rlch/cw/scope"
)

// ScopedType is a type evaluated in a scope context.
type ScopedType struct {
	Type  *schema.Type
	Scope *scope.Stack

	// Subtypes are the active subtypes, set by Narrow.
	Subtypes []string

	// InScriptedEffect is set inside scripted effect and trigger bodies,
	// where $PARAM$ tokens stand in for any value.
	InScriptedEffect bool

	// Options are the directives of the rule the type was reached through.
	Options schema.Options

	// Alias is the alias definition the type came from, if any.
	Alias *schema.Alias

	// Members holds the alternatives when several rules match. Type is nil
	// for such a union.
	Members []*ScopedType
}

// Scoped pairs t with s.
func Scoped(t *schema.Type, s *scope.Stack) *ScopedType {
	return &ScopedType{Type: t, Scope: s}
}

// IsUnion reports whether st holds alternatives.
func (st *ScopedType) IsUnion() bool { return len(st.Members) > 0 }

// Each returns the alternatives of a union, or st itself.
func (st *ScopedType) Each() []*ScopedType {
	if st.IsUnion() {
		return st.Members
	}

	return []*ScopedType{st}
}

// HasSubtype reports whether name is active.
func (st *ScopedType) HasSubtype(name string) bool {
	return slices.ContainsFunc(st.Subtypes, func(s string) bool { return strings.EqualFold(s, name) })
}

// String renders the type for hover text.
func (st *ScopedType) String() string {
	if st.IsUnion() {
		parts := make([]string, len(st.Members))
		for i, m := range st.Members {
			parts[i] = m.String()
		}

		return strings.Join(parts, " | ")
	}

	s := st.Type.String()
	if len(st.Subtypes) > 0 {
		s += " (" + strings.Join(st.Subtypes, ", ") + ")"
	}

	return s
}

// unionOf collapses alternatives: none is nil, one is itself.
func unionOf(members []*ScopedType) *ScopedType {
	var flat []*ScopedType
	for _, m := range members {
		flat = append(flat, m.Each()...)
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}

	return &ScopedType{Members: flat, Scope: flat[0].Scope}
}

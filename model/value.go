// Package model is the semantic view over parsed script: modules, entities,
// interned property maps and values, and namespaces that combine the modules
// of one directory according to the game's merge mode.
//
// Model values are treated as immutable once built. Operations that combine
// entities (namespace merging, restructuring) clone before writing.
package model

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/cw"
	"github.com/rlch/cw/interner"
)

// Value is a property value or a bare item: *String, *Number, *Color, *Maths
// or *Entity.
type Value interface {
	Span() cw.Span
	String() string
	toAST() cw.Value
}

// String is a quoted or unquoted string value.
type String struct {
	Text   string
	Quoted bool
	Pos    lexer.Position
	EndPos lexer.Position
}

// Span returns the value's source range.
func (s *String) Span() cw.Span { return cw.Span{Start: s.Pos, End: s.EndPos} }

func (s *String) String() string {
	if s.Quoted {
		return `"` + s.Text + `"`
	}

	return s.Text
}

// Spur interns the string.
func (s *String) Spur() interner.Spur { return interner.Intern(s.Text) }

// IsScriptedVariable reports whether the value is an @variable reference.
func (s *String) IsScriptedVariable() bool {
	return !s.Quoted && len(s.Text) > 1 && s.Text[0] == '@'
}

// Bool reports the value of yes/no strings.
func (s *String) Bool() (value, ok bool) {
	switch strings.ToLower(s.Text) {
	case "yes":
		return true, true
	case "no":
		return false, true
	}

	return false, false
}

// Number is a numeric literal.
type Number struct {
	Text    string
	Percent bool
	Pos     lexer.Position
	EndPos  lexer.Position
}

// Span returns the value's source range.
func (n *Number) Span() cw.Span { return cw.Span{Start: n.Pos, End: n.EndPos} }

func (n *Number) String() string {
	if n.Percent {
		return n.Text + "%"
	}

	return n.Text
}

// Float parses the literal. Percentages are returned as written, not divided.
func (n *Number) Float() (float64, error) {
	return strconv.ParseFloat(n.Text, 64)
}

// IsInteger reports whether the literal has no fractional part.
func (n *Number) IsInteger() bool { return !strings.Contains(n.Text, ".") }

// Color is `rgb { ... }` or `hsv { ... }`.
type Color struct {
	Kind       string
	Components []Value
	Pos        lexer.Position
	EndPos     lexer.Position
}

// Span returns the value's source range.
func (c *Color) Span() cw.Span { return cw.Span{Start: c.Pos, End: c.EndPos} }

func (c *Color) String() string {
	parts := make([]string, 0, len(c.Components)+3)
	parts = append(parts, c.Kind, "{")

	for _, comp := range c.Components {
		parts = append(parts, comp.String())
	}

	return strings.Join(append(parts, "}"), " ")
}

// Maths is an inline `@[ ... ]` expression.
type Maths struct {
	Text    string
	Escaped bool
	Pos     lexer.Position
	EndPos  lexer.Position
}

// Span returns the value's source range.
func (m *Maths) Span() cw.Span { return cw.Span{Start: m.Pos, End: m.EndPos} }

func (m *Maths) String() string {
	if m.Escaped {
		return `@\[` + m.Text + `\]`
	}

	return "@[" + m.Text + "]"
}

// AsString returns v as a *String when it is one.
func AsString(v Value) (*String, bool) {
	s, ok := v.(*String)

	return s, ok
}

// AsEntity returns v as an *Entity when it is one.
func AsEntity(v Value) (*Entity, bool) {
	e, ok := v.(*Entity)

	return e, ok
}

// Text returns the textual form of scalar values and "" for entities.
func Text(v Value) string {
	switch v := v.(type) {
	case *String:
		return v.Text
	case *Number:
		return v.String()
	case *Maths:
		return v.String()
	case *Color:
		return v.String()
	}

	return ""
}

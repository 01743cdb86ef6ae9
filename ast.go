// Package cw parses, walks and formats Clausewitz script files.
//
// A script file is a sequence of items: keyed expressions (key op value),
// bare values and conditional blocks. The AST keeps every node's source span,
// its comments and the blank lines before it so the formatter can reproduce
// the file faithfully.
package cw

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Node is implemented by every AST node.
type Node interface {
	Span() Span
}

// Item is an entry of a module, entity or conditional block.
type Item interface {
	Node
	Decor() *Decoration
	item()
}

// Value is the right-hand side of an expression, or a bare item.
type Value interface {
	Node
	value()
}

// Module is a parsed script file.
type Module struct {
	Filename string
	Items    []Item

	// Dangling holds comments after the last item (or every comment of a
	// comment-only file).
	Dangling []*Comment

	HasBOM bool
	Pos    lexer.Position
	EndPos lexer.Position
}

// Span returns the module's source range.
func (m *Module) Span() Span { return Span{Start: m.Pos, End: m.EndPos} }

// Expression is `key op value`.
type Expression struct {
	Decoration

	Key   *String
	Op    Operator
	OpPos lexer.Position
	Value Value
}

// Span covers the key through the end of the value.
func (e *Expression) Span() Span {
	return Span{Start: e.Key.Pos, End: e.Value.Span().End}
}

// BareValue is a value appearing on its own in a block, e.g. the members of
// `tags = { a b c }`.
type BareValue struct {
	Decoration

	Value Value
}

// Span returns the wrapped value's range.
func (b *BareValue) Span() Span { return b.Value.Span() }

// Conditional is `[[KEY] items ]` or `[[!KEY] items ]`, spliced in when the
// scripted-effect parameter KEY is (or is not) set.
type Conditional struct {
	Decoration

	Negated  bool
	Key      *String
	Items    []Item
	Dangling []*Comment
	Pos      lexer.Position
	EndPos   lexer.Position
}

// Span returns the block's source range.
func (c *Conditional) Span() Span { return Span{Start: c.Pos, End: c.EndPos} }

func (*Expression) item()  {}
func (*BareValue) item()   {}
func (*Conditional) item() {}

// String is a quoted or unquoted string. Text excludes the quotes and keeps
// escape sequences as written.
type String struct {
	Text   string
	Quoted bool
	Pos    lexer.Position
	EndPos lexer.Position
}

// Span returns the string's source range.
func (s *String) Span() Span { return Span{Start: s.Pos, End: s.EndPos} }

// IsScriptedVariable reports whether the string is an @variable reference.
func (s *String) IsScriptedVariable() bool {
	return !s.Quoted && strings.HasPrefix(s.Text, "@") && len(s.Text) > 1
}

// IsParameter reports whether the string contains a $PARAM$ splice.
func (s *String) IsParameter() bool {
	return len(ParameterNames(s.Text)) > 0
}

// Unescaped returns Text with \" \\ and \n escapes resolved.
func (s *String) Unescaped() string {
	if !s.Quoted || !strings.Contains(s.Text, `\`) {
		return s.Text
	}

	var b strings.Builder

	for i := 0; i < len(s.Text); i++ {
		c := s.Text[i]
		if c == '\\' && i+1 < len(s.Text) {
			i++

			switch s.Text[i] {
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteByte(s.Text[i])
			}

			continue
		}

		b.WriteByte(c)
	}

	return b.String()
}

// Number is a numeric literal. Text holds the digits and sign, without the
// percent suffix.
type Number struct {
	Text    string
	Percent bool
	Pos     lexer.Position
	EndPos  lexer.Position
}

// Span returns the number's source range.
func (n *Number) Span() Span { return Span{Start: n.Pos, End: n.EndPos} }

// IsInteger reports whether the literal has no fractional part.
func (n *Number) IsInteger() bool { return !strings.Contains(n.Text, ".") }

// Color is `rgb { r g b [a] }` or `hsv { h s v [a] }`. Components are
// *Number or *String (for parameter splices such as $R$).
type Color struct {
	Kind       string
	Components []Value
	Pos        lexer.Position
	EndPos     lexer.Position
}

// Span returns the color's source range.
func (c *Color) Span() Span { return Span{Start: c.Pos, End: c.EndPos} }

// Maths is inline arithmetic, `@[ expr ]` or `@\[ expr \]`. Text is the
// uninterpreted interior.
type Maths struct {
	Text    string
	Escaped bool
	Pos     lexer.Position
	EndPos  lexer.Position
}

// Span returns the expression's source range.
func (m *Maths) Span() Span { return Span{Start: m.Pos, End: m.EndPos} }

// Entity is a braced block of items.
type Entity struct {
	Items []Item

	// OpenComment is a comment on the same line as the opening brace.
	OpenComment *Comment
	Dangling    []*Comment
	Pos         lexer.Position
	EndPos      lexer.Position
}

// Span returns the block's source range, braces included.
func (e *Entity) Span() Span { return Span{Start: e.Pos, End: e.EndPos} }

func (*String) value() {}
func (*Number) value() {}
func (*Color) value()  {}
func (*Maths) value()  {}
func (*Entity) value() {}

// Operator is a comparison or assignment operator.
type Operator int

// Operators in the order they are usually documented.
const (
	OpEquals Operator = iota
	OpDoubleEquals
	OpNotEquals
	OpGreater
	OpGreaterEquals
	OpLess
	OpLessEquals
	OpPlusEquals
	OpMinusEquals
	OpMultiplyEquals
)

var operatorText = [...]string{
	OpEquals:         "=",
	OpDoubleEquals:   "==",
	OpNotEquals:      "!=",
	OpGreater:        ">",
	OpGreaterEquals:  ">=",
	OpLess:           "<",
	OpLessEquals:     "<=",
	OpPlusEquals:     "+=",
	OpMinusEquals:    "-=",
	OpMultiplyEquals: "*=",
}

func (o Operator) String() string {
	if int(o) < len(operatorText) {
		return operatorText[o]
	}

	return "?"
}

// ParseOperator maps operator text to an Operator.
func ParseOperator(s string) (Operator, bool) {
	for i, text := range operatorText {
		if text == s {
			return Operator(i), true
		}
	}

	return OpEquals, false
}

// ParameterNames returns the $NAME$ and $NAME|fallback$ parameter names
// spliced into s, in order of appearance.
func ParameterNames(s string) []string {
	var names []string

	for {
		start := strings.IndexByte(s, '$')
		if start < 0 {
			return names
		}

		end := strings.IndexByte(s[start+1:], '$')
		if end < 0 {
			return names
		}

		inner := s[start+1 : start+1+end]
		if name, _, _ := strings.Cut(inner, "|"); name != "" && IsIdentifier(name) {
			names = append(names, name)
		}

		s = s[start+1+end+1:]
	}
}

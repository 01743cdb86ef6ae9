package cw

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Span represents a range in source code. Start is inclusive and End is
// exclusive.
type Span struct {
	Start lexer.Position
	End   lexer.Position
}

// Contains reports whether the byte offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// ContainsSpan reports whether other lies entirely within s.
func (s Span) ContainsSpan(other Span) bool {
	return other.Start.Offset >= s.Start.Offset && other.End.Offset <= s.End.Offset
}

// Len returns the span's length in bytes.
func (s Span) Len() int { return s.End.Offset - s.Start.Offset }

// Comment is a `#` comment. Text includes the leading '#'.
type Comment struct {
	Text   string
	Pos    lexer.Position
	EndPos lexer.Position

	// BlankLines is the number of empty lines between this comment and
	// whatever precedes it.
	BlankLines int
}

// Span returns the comment's source range.
func (c *Comment) Span() Span { return Span{Start: c.Pos, End: c.EndPos} }

// Body returns the comment text without the '#' marker and surrounding space.
func (c *Comment) Body() string {
	return strings.TrimSpace(strings.TrimLeft(c.Text, "#"))
}

// Decoration carries the trivia the formatter needs to reproduce an item:
// own-line comments above it, a same-line comment after it and the blank
// lines that separate it from the previous sibling.
type Decoration struct {
	Leading    []*Comment
	Trailing   *Comment
	BlankLines int
}

// Decor returns the item's decoration.
func (d *Decoration) Decor() *Decoration { return d }

// Comments returns every comment attached to a module, in source order. The
// visitor does not descend into trivia, so tools that need comments (semantic
// tokens, folding) use this.
func Comments(m *Module) []*Comment {
	var out []*Comment

	var items func([]Item, []*Comment)

	var value func(Value)

	items = func(list []Item, dangling []*Comment) {
		for _, it := range list {
			d := it.Decor()
			out = append(out, d.Leading...)

			switch n := it.(type) {
			case *Expression:
				value(n.Value)
			case *BareValue:
				value(n.Value)
			case *Conditional:
				items(n.Items, n.Dangling)
			}

			if d.Trailing != nil {
				out = append(out, d.Trailing)
			}
		}

		out = append(out, dangling...)
	}

	value = func(v Value) {
		if e, ok := v.(*Entity); ok {
			if e.OpenComment != nil {
				out = append(out, e.OpenComment)
			}

			items(e.Items, e.Dangling)
		}
	}

	items(m.Items, m.Dangling)

	return out
}

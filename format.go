package cw

import (
	"strings"
)

// FormatOptions controls layout. The zero value is not useful; start from
// DefaultFormatOptions.
type FormatOptions struct {
	// Indent is the number of spaces per nesting level when UseTabs is false.
	Indent  int
	UseTabs bool

	// MaxBlankLines caps the blank lines kept between siblings.
	MaxBlankLines int
}

// DefaultFormatOptions returns four-space indentation with at most one blank
// line between items.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{Indent: 4, MaxBlankLines: 1}
}

// Format formats a module with the default options.
func Format(m *Module) string {
	return FormatWithOptions(m, DefaultFormatOptions())
}

// FormatWithOptions formats a module back into script source. Blocks written
// on a single line stay on one line; everything else is laid out one item per
// line. The output of a non-empty module ends with a newline.
func FormatWithOptions(m *Module, opts FormatOptions) string {
	var b strings.Builder

	f := &formatter{b: &b, opts: opts}
	if opts.UseTabs {
		f.unit = "\t"
	} else {
		f.unit = strings.Repeat(" ", max(opts.Indent, 0))
	}

	if m.HasBOM {
		f.write(bom)
	}

	f.formatItems(m.Items, m.Dangling)

	return b.String()
}

type formatter struct {
	b     *strings.Builder
	opts  FormatOptions
	unit  string
	depth int

	// lines counts lines written at the current block level; blank lines
	// are never emitted before the first one.
	lines int
}

func (f *formatter) write(s string) {
	f.b.WriteString(s)
}

func (f *formatter) writeIndent() {
	for range f.depth {
		f.write(f.unit)
	}
}

func (f *formatter) newline() {
	f.write("\n")
	f.lines++
}

func (f *formatter) blankLines(n int) {
	if f.lines == 0 {
		return
	}

	for range min(n, f.opts.MaxBlankLines) {
		f.write("\n")
	}
}

func (f *formatter) comment(c *Comment) {
	f.blankLines(c.BlankLines)
	f.writeIndent()
	f.write(strings.TrimRight(c.Text, " \t"))
	f.newline()
}

func (f *formatter) formatItems(items []Item, dangling []*Comment) {
	for _, it := range items {
		d := it.Decor()

		for _, c := range d.Leading {
			f.comment(c)
		}

		f.blankLines(d.BlankLines)
		f.writeIndent()
		f.formatItem(it)

		if d.Trailing != nil {
			f.write(" ")
			f.write(strings.TrimRight(d.Trailing.Text, " \t"))
		}

		f.newline()
	}

	for _, c := range dangling {
		f.comment(c)
	}
}

func (f *formatter) formatItem(it Item) {
	switch n := it.(type) {
	case *Expression:
		f.write(formatKey(n.Key))
		f.write(" ")
		f.write(n.Op.String())
		f.write(" ")
		f.formatValue(n.Value)
	case *BareValue:
		f.formatValue(n.Value)
	case *Conditional:
		f.formatConditional(n)
	}
}

func formatKey(s *String) string {
	if s.Quoted {
		return `"` + s.Text + `"`
	}

	return s.Text
}

func (f *formatter) formatValue(v Value) {
	switch n := v.(type) {
	case *String:
		f.write(formatKey(n))
	case *Number:
		f.write(n.Text)

		if n.Percent {
			f.write("%")
		}
	case *Maths:
		if n.Escaped {
			f.write(`@\[` + n.Text + `\]`)
		} else {
			f.write("@[" + n.Text + "]")
		}
	case *Color:
		f.write(n.Kind)
		f.write(" {")

		for _, c := range n.Components {
			f.write(" ")
			f.formatValue(c)
		}

		f.write(" }")
	case *Entity:
		f.formatEntity(n)
	}
}

// singleLine reports whether a block was written on one source line. Such a
// block cannot contain comments, since a comment runs to the end of its line.
func singleLine(start, end int) bool {
	return start != 0 && start == end
}

func (f *formatter) formatEntity(e *Entity) {
	if len(e.Items) == 0 && len(e.Dangling) == 0 && e.OpenComment == nil {
		f.write("{ }")

		return
	}

	if singleLine(e.Pos.Line, e.EndPos.Line) {
		f.write("{")
		f.inlineItems(e.Items)
		f.write(" }")

		return
	}

	f.write("{")

	if e.OpenComment != nil {
		f.write(" ")
		f.write(strings.TrimRight(e.OpenComment.Text, " \t"))
	}

	f.block(e.Items, e.Dangling)
	f.writeIndent()
	f.write("}")
}

func (f *formatter) formatConditional(c *Conditional) {
	f.write("[[")

	if c.Negated {
		f.write("!")
	}

	f.write(c.Key.Text)
	f.write("]")

	if len(c.Items) == 0 && len(c.Dangling) == 0 {
		f.write(" ]")

		return
	}

	if singleLine(c.Pos.Line, c.EndPos.Line) {
		f.inlineItems(c.Items)
		f.write(" ]")

		return
	}

	f.block(c.Items, c.Dangling)
	f.writeIndent()
	f.write("]")
}

// block writes items one level deeper, each on its own line, starting with
// the newline after the opening delimiter.
func (f *formatter) block(items []Item, dangling []*Comment) {
	f.write("\n")

	outerLines := f.lines
	f.lines = 0
	f.depth++

	f.formatItems(items, dangling)

	f.depth--
	f.lines = outerLines
}

func (f *formatter) inlineItems(items []Item) {
	for _, it := range items {
		f.write(" ")
		f.formatItem(it)
	}
}

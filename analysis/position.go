package analysis

import (
	"sort"
	"unicode/utf8"

	"github.com/rlch/cw"
	"github.com/rlch/cw/model"
)

// LineIndex converts between byte offsets and LSP positions: 0-based lines
// and UTF-16 code unit columns.
type LineIndex struct {
	content []byte
	starts  []int
}

// NewLineIndex indexes the line starts of content.
func NewLineIndex(content []byte) *LineIndex {
	starts := []int{0}

	for i, c := range content {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}

	return &LineIndex{content: content, starts: starts}
}

// Position returns the LSP position of a byte offset.
func (ix *LineIndex) Position(offset int) (line, character uint32) {
	offset = min(max(offset, 0), len(ix.content))
	l := sort.Search(len(ix.starts), func(i int) bool { return ix.starts[i] > offset }) - 1

	return uint32(l), ix.units(ix.starts[l], offset) //nolint:gosec // line counts fit
}

// Offset returns the byte offset of an LSP position. Positions past the end
// of a line clamp to the line end.
func (ix *LineIndex) Offset(line, character uint32) int {
	if int(line) >= len(ix.starts) {
		return len(ix.content)
	}

	off := ix.starts[line]
	end := len(ix.content)

	if int(line)+1 < len(ix.starts) {
		end = ix.starts[line+1] - 1
	}

	for n := uint32(0); off < end && n < character; {
		r, size := utf8.DecodeRune(ix.content[off:end])
		off += size
		n += runeUnits(r)
	}

	return off
}

// Units returns the UTF-16 length of content[start:end].
func (ix *LineIndex) Units(start, end int) uint32 { return ix.units(start, end) }

func (ix *LineIndex) units(start, end int) uint32 {
	var n uint32

	b := ix.content[start:end]
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		b = b[size:]
		n += runeUnits(r)
	}

	return n
}

func runeUnits(r rune) uint32 {
	if r >= 0x10000 {
		return 2
	}

	return 1
}

// Lines returns the number of lines.
func (ix *LineIndex) Lines() int { return len(ix.starts) }

// containsCursor reports whether a cursor at offset touches span. A cursor
// just after the last character still counts.
func containsCursor(span cw.Span, offset int) bool {
	return offset >= span.Start.Offset && offset <= span.End.Offset
}

// propertySpan covers a property from its key to the end of its value.
func propertySpan(p *model.PropertyInfo) cw.Span {
	return cw.Span{Start: p.KeySpan.Start, End: p.Value.Span().End}
}

// Location describes what sits under a cursor.
type Location struct {
	// Entity is the enclosing top-level entity, nil outside any.
	Entity *EntitySymbol

	// Path is the chain of properties from inside Entity down to the
	// innermost one containing the cursor.
	Path []*model.PropertyInfo

	// OnKey is set when the cursor is on the key of the last property of
	// Path, or on the entity key itself when Path is empty.
	OnKey bool

	// Value is the leaf value under the cursor, if any.
	Value model.Value

	// Block is the innermost block containing the cursor.
	Block *model.Entity

	// Variable is set when the cursor is on a module-level @variable
	// definition.
	Variable *VariableSymbol

	// Node is the innermost AST node under the cursor.
	Node cw.Node
}

// Locate finds what sits under offset.
func Locate(f *AnalyzedFile, offset int) *Location {
	loc := &Location{}

	if f.Module == nil {
		return loc
	}

	if path := cw.Path(f.Module, offset); len(path) > 0 {
		loc.Node = path[len(path)-1]
	}

	for _, v := range f.Symbols.Variables {
		if containsCursor(v.Span, offset) {
			loc.Variable = v
			loc.OnKey = containsCursor(v.KeySpan, offset)

			if !loc.OnKey {
				loc.Value = v.Value
			}

			return loc
		}
	}

	for _, ent := range f.Symbols.Entities {
		if containsCursor(ent.KeySpan, offset) {
			loc.Entity = ent
			loc.OnKey = true

			return loc
		}

		if ent.Entity.Entity != nil && containsCursor(ent.Entity.Entity.Span(), offset) {
			loc.Entity = ent
			descend(loc, ent.Entity.Entity, offset)

			return loc
		}
	}

	return loc
}

func descend(loc *Location, e *model.Entity, offset int) {
	for depth := 0; e != nil && depth < maxDepth; depth++ {
		loc.Block = e

		next := step(loc, e, offset)
		if next == nil {
			return
		}

		e = next
	}
}

// step finds the child of e holding offset, records it and returns the
// block to continue in, or nil when the cursor rests in e.
func step(loc *Location, e *model.Entity, offset int) *model.Entity {
	for _, c := range e.Conditionals {
		if c.Body != nil && containsCursor(c.Span(), offset) {
			return c.Body
		}
	}

	for _, list := range e.Properties.All() {
		for _, p := range list {
			if !containsCursor(propertySpan(p), offset) {
				continue
			}

			loc.Path = append(loc.Path, p)

			if containsCursor(p.KeySpan, offset) {
				loc.OnKey = true

				return nil
			}

			if sub, ok := model.AsEntity(p.Value); ok {
				return sub
			}

			loc.Value = p.Value

			return nil
		}
	}

	for _, v := range e.Items {
		if containsCursor(v.Span(), offset) {
			if sub, ok := model.AsEntity(v); ok {
				return sub
			}

			loc.Value = v

			return nil
		}
	}

	return nil
}

// Property returns the innermost property of the location.
func (l *Location) Property() (*model.PropertyInfo, bool) {
	if len(l.Path) == 0 {
		return nil, false
	}

	return l.Path[len(l.Path)-1], true
}

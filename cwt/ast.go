// Package cwt parses CWT schema files.
//
// CWT shares the script grammar and adds typed identifiers (enum[x], <type>,
// alias_name[cat], ...), the == operator, documentation lines (###) and rule
// options (##). Options and documentation attach to the rule that follows
// them, or to the rule on the same line.
package cwt

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/cw"
)

// Node is implemented by every schema AST node.
type Node interface {
	Span() cw.Span
}

// Item is an entry of a file or block.
type Item interface {
	Node
	Metadata() *Meta
	item()
}

// Value is the right-hand side of a rule or a bare item.
type Value interface {
	Node
	value()
}

// Meta holds the documentation and options written above a rule.
type Meta struct {
	Doc     []string
	Options []*Option
}

// Metadata returns the item's documentation and options.
func (m *Meta) Metadata() *Meta { return m }

// Documentation joins the ### lines into one paragraph per line.
func (m *Meta) Documentation() string {
	return strings.Join(m.Doc, "\n")
}

// Option returns the first option named key.
func (m *Meta) Option(key string) (*Option, bool) {
	for _, o := range m.Options {
		if strings.EqualFold(o.Key, key) {
			return o, true
		}
	}

	return nil, false
}

// HasFlag reports whether a value-less option such as `## required` is set.
func (m *Meta) HasFlag(key string) bool {
	_, ok := m.Option(key)

	return ok
}

// File is a parsed .cwt file.
type File struct {
	Filename string
	Items    []Item
	Pos      lexer.Position
	EndPos   lexer.Position

	// OptionErrors holds `##` lines that could not be parsed. They do not fail
	// the file; the affected rule simply lacks those options.
	OptionErrors []*cw.ParseError
}

// Span returns the file's source range.
func (f *File) Span() cw.Span { return cw.Span{Start: f.Pos, End: f.EndPos} }

// Rule is `key op value`.
type Rule struct {
	Meta

	Key   *Identifier
	Op    cw.Operator
	Value Value
}

// Span covers the key through the value.
func (r *Rule) Span() cw.Span {
	return cw.Span{Start: r.Key.Pos, End: r.Value.Span().End}
}

// Comparable reports whether the rule was written with ==.
func (r *Rule) Comparable() bool { return r.Op == cw.OpDoubleEquals }

// BareValue is a value on its own, such as an enum member.
type BareValue struct {
	Meta

	Value Value
}

// Span returns the value's range.
func (b *BareValue) Span() cw.Span { return b.Value.Span() }

func (*Rule) item()      {}
func (*BareValue) item() {}

// Block is `{ item* }`.
type Block struct {
	Items  []Item
	Pos    lexer.Position
	EndPos lexer.Position
}

// Span returns the block's range, braces included.
func (b *Block) Span() cw.Span { return cw.Span{Start: b.Pos, End: b.EndPos} }

// Rules returns the rules of the block whose key text equals name, compared
// case-insensitively.
func (b *Block) Rules(name string) []*Rule {
	var out []*Rule

	for _, it := range b.Items {
		if r, ok := it.(*Rule); ok && strings.EqualFold(r.Key.Text, name) {
			out = append(out, r)
		}
	}

	return out
}

// Rule returns the first rule named name.
func (b *Block) Rule(name string) (*Rule, bool) {
	rules := b.Rules(name)
	if len(rules) == 0 {
		return nil, false
	}

	return rules[0], true
}

// Scalar returns the text of the first rule named name when its value is an
// identifier.
func (b *Block) Scalar(name string) (string, bool) {
	r, ok := b.Rule(name)
	if !ok {
		return "", false
	}

	id, ok := r.Value.(*Identifier)
	if !ok {
		return "", false
	}

	return id.Text, true
}

// Values returns the identifiers listed as bare items.
func (b *Block) Values() []*Identifier {
	var out []*Identifier

	for _, it := range b.Items {
		if bv, ok := it.(*BareValue); ok {
			if id, ok := bv.Value.(*Identifier); ok {
				out = append(out, id)
			}
		}
	}

	return out
}

func (*Identifier) value() {}
func (*Block) value()      {}

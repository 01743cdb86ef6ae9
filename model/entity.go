package model

import (
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/cw"
	"github.com/rlch/cw/interner"
)

// Entity is a block: keyed properties, bare items and conditional blocks.
type Entity struct {
	Properties   *Properties
	Items        []Value
	Conditionals []*Conditional
	Pos          lexer.Position
	EndPos       lexer.Position

	// order records the interleaving of properties, items and conditionals
	// so that printing reproduces the source order.
	order []slot
}

type slotKind uint8

const (
	slotProperty slotKind = iota
	slotItem
	slotConditional
)

type slot struct {
	kind slotKind
	key  interner.Spur
}

// Conditional is a `[[KEY] ... ]` block inside an entity.
type Conditional struct {
	Key     string
	Negated bool
	Body    *Entity
	Pos     lexer.Position
	EndPos  lexer.Position
}

// Span returns the block's source range.
func (c *Conditional) Span() cw.Span { return cw.Span{Start: c.Pos, End: c.EndPos} }

// NewEntity returns an empty entity.
func NewEntity() *Entity {
	return &Entity{Properties: NewProperties()}
}

// Span returns the entity's source range.
func (e *Entity) Span() cw.Span { return cw.Span{Start: e.Pos, End: e.EndPos} }

// AddProperty appends a `key op value` occurrence.
func (e *Entity) AddProperty(info *PropertyInfo) {
	e.Properties.Add(info)
	e.order = append(e.order, slot{kind: slotProperty, key: interner.Intern(info.Key)})
}

// Set is shorthand for AddProperty with the = operator.
func (e *Entity) Set(key string, v Value) *Entity {
	e.AddProperty(&PropertyInfo{Key: key, Operator: cw.OpEquals, Value: v})

	return e
}

// AddItem appends a bare value.
func (e *Entity) AddItem(v Value) {
	e.Items = append(e.Items, v)
	e.order = append(e.order, slot{kind: slotItem})
}

// AddConditional appends a conditional block.
func (e *Entity) AddConditional(c *Conditional) {
	e.Conditionals = append(e.Conditionals, c)
	e.order = append(e.order, slot{kind: slotConditional})
}

// Get returns every occurrence of key.
func (e *Entity) Get(key string) PropertyInfoList { return e.Properties.Get(key) }

// Only returns the value of a key that occurs exactly once.
func (e *Entity) Only(key string) (Value, bool) { return e.Properties.Get(key).Only() }

// Conditional returns the conditional blocks guarded by key.
func (e *Entity) Conditional(key string) []*Conditional {
	var out []*Conditional

	for _, c := range e.Conditionals {
		if strings.EqualFold(c.Key, key) {
			out = append(out, c)
		}
	}

	return out
}

// Clone returns a copy that can be modified without affecting e. Nested
// values are shared.
func (e *Entity) Clone() *Entity {
	return &Entity{
		Properties:   e.Properties.Clone(),
		Items:        slices.Clone(e.Items),
		Conditionals: slices.Clone(e.Conditionals),
		Pos:          e.Pos,
		EndPos:       e.EndPos,
		order:        slices.Clone(e.order),
	}
}

// Replace swaps every occurrence of key for list, keeping the position of
// the first occurrence.
func (e *Entity) Replace(key string, list PropertyInfoList) {
	k := interner.Intern(key)
	e.Properties.Set(k, list)

	if !slices.ContainsFunc(e.order, func(s slot) bool { return s.kind == slotProperty && s.key == k }) {
		for range list {
			e.order = append(e.order, slot{kind: slotProperty, key: k})
		}
	}
}

func (e *Entity) String() string {
	m := &cw.Module{Items: []cw.Item{&cw.BareValue{Value: e.toAST()}}}

	return strings.TrimSuffix(cw.Format(m), "\n")
}

// Walk visits every entity reachable from e, e first, descending through
// property values, bare items and conditional bodies. Returning false from
// fn skips the entity's children.
func (e *Entity) Walk(fn func(*Entity) bool) {
	if !fn(e) {
		return
	}

	for _, list := range e.Properties.All() {
		for _, p := range list {
			if child, ok := p.Value.(*Entity); ok {
				child.Walk(fn)
			}
		}
	}

	for _, v := range e.Items {
		if child, ok := v.(*Entity); ok {
			child.Walk(fn)
		}
	}

	for _, c := range e.Conditionals {
		c.Body.Walk(fn)
	}
}

// MergeDeep returns dst overlaid with src: same-named entity properties are
// merged recursively, everything else is appended.
func MergeDeep(dst, src *Entity) *Entity {
	out := dst.Clone()

	for k, list := range src.Properties.All() {
		existing := out.Properties.GetSpur(k)

		dstChild, ok1 := entityOnly(existing)
		srcChild, ok2 := entityOnly(list)

		if ok1 && ok2 {
			merged := *existing[0]
			merged.Value = MergeDeep(dstChild, srcChild)
			out.Properties.Set(k, PropertyInfoList{&merged})

			continue
		}

		for _, p := range list {
			out.AddProperty(p)
		}
	}

	for _, v := range src.Items {
		out.AddItem(v)
	}

	for _, c := range src.Conditionals {
		out.AddConditional(c)
	}

	return out
}

// MergeShallow returns dst with each key of src replacing the same key of
// dst.
func MergeShallow(dst, src *Entity) *Entity {
	out := dst.Clone()

	for _, list := range src.Properties.All() {
		out.Replace(list[0].Key, slices.Clone(list))
	}

	for _, v := range src.Items {
		out.AddItem(v)
	}

	return out
}

func entityOnly(l PropertyInfoList) (*Entity, bool) {
	v, ok := l.Only()
	if !ok {
		return nil, false
	}

	return AsEntity(v)
}

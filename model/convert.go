package model

import (
	"strings"

	"github.com/rlch/cw"
	"github.com/rlch/cw/interner"
)

// EntityFromAST builds an entity from a parsed block.
func EntityFromAST(ast *cw.Entity) *Entity {
	e := fromItems(ast.Items)
	e.Pos, e.EndPos = ast.Pos, ast.EndPos

	return e
}

// EntityFromModule builds the top-level entity of a parsed file.
func EntityFromModule(ast *cw.Module) *Entity {
	e := fromItems(ast.Items)
	e.Pos, e.EndPos = ast.Pos, ast.EndPos

	return e
}

func fromItems(items []cw.Item) *Entity {
	e := NewEntity()

	for _, it := range items {
		switch it := it.(type) {
		case *cw.Expression:
			e.AddProperty(&PropertyInfo{
				Key:      it.Key.Text,
				KeySpan:  it.Key.Span(),
				Operator: it.Op,
				Value:    ValueFromAST(it.Value),
			})
		case *cw.BareValue:
			e.AddItem(ValueFromAST(it.Value))
		case *cw.Conditional:
			body := fromItems(it.Items)
			body.Pos, body.EndPos = it.Pos, it.EndPos

			e.AddConditional(&Conditional{
				Key:     it.Key.Text,
				Negated: it.Negated,
				Body:    body,
				Pos:     it.Pos,
				EndPos:  it.EndPos,
			})
		}
	}

	return e
}

// ValueFromAST converts a parsed value.
func ValueFromAST(v cw.Value) Value {
	switch v := v.(type) {
	case *cw.String:
		return &String{Text: v.Unescaped(), Quoted: v.Quoted, Pos: v.Pos, EndPos: v.EndPos}
	case *cw.Number:
		return &Number{Text: v.Text, Percent: v.Percent, Pos: v.Pos, EndPos: v.EndPos}
	case *cw.Color:
		c := &Color{Kind: v.Kind, Pos: v.Pos, EndPos: v.EndPos}
		for _, comp := range v.Components {
			c.Components = append(c.Components, ValueFromAST(comp))
		}

		return c
	case *cw.Maths:
		return &Maths{Text: v.Text, Escaped: v.Escaped, Pos: v.Pos, EndPos: v.EndPos}
	case *cw.Entity:
		return EntityFromAST(v)
	}

	return &String{}
}

func (s *String) toAST() cw.Value {
	text := s.Text
	if s.Quoted {
		text = strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(text)
	}

	return &cw.String{Text: text, Quoted: s.Quoted}
}

func (n *Number) toAST() cw.Value { return &cw.Number{Text: n.Text, Percent: n.Percent} }

func (m *Maths) toAST() cw.Value { return &cw.Maths{Text: m.Text, Escaped: m.Escaped} }

func (c *Color) toAST() cw.Value {
	out := &cw.Color{Kind: c.Kind}
	for _, comp := range c.Components {
		out.Components = append(out.Components, comp.toAST())
	}

	return out
}

func (e *Entity) toAST() cw.Value { return &cw.Entity{Items: e.astItems()} }

// ToAST converts the entity back into a block for printing.
func (e *Entity) ToAST() *cw.Entity { return &cw.Entity{Items: e.astItems()} }

// astItems emits items in recorded order. Occurrences added behind the
// order's back (through Properties directly) are appended at the end.
func (e *Entity) astItems() []cw.Item {
	var (
		out       []cw.Item
		emitted   = make(map[interner.Spur]int)
		itemIdx   int
		condIdx   int
		propertyN = func(k interner.Spur) {
			list := e.Properties.GetSpur(k)
			if i := emitted[k]; i < len(list) {
				out = append(out, expressionAST(list[i]))
				emitted[k] = i + 1
			}
		}
	)

	for _, s := range e.order {
		switch s.kind {
		case slotProperty:
			propertyN(s.key)
		case slotItem:
			if itemIdx < len(e.Items) {
				out = append(out, &cw.BareValue{Value: e.Items[itemIdx].toAST()})
				itemIdx++
			}
		case slotConditional:
			if condIdx < len(e.Conditionals) {
				out = append(out, conditionalAST(e.Conditionals[condIdx]))
				condIdx++
			}
		}
	}

	for k, list := range e.Properties.All() {
		for emitted[k] < len(list) {
			propertyN(k)
		}
	}

	for ; itemIdx < len(e.Items); itemIdx++ {
		out = append(out, &cw.BareValue{Value: e.Items[itemIdx].toAST()})
	}

	for ; condIdx < len(e.Conditionals); condIdx++ {
		out = append(out, conditionalAST(e.Conditionals[condIdx]))
	}

	return out
}

func expressionAST(p *PropertyInfo) *cw.Expression {
	return &cw.Expression{
		Key:   &cw.String{Text: p.Key, Quoted: !cw.IsIdentifier(p.Key)},
		Op:    p.Operator,
		Value: p.Value.toAST(),
	}
}

func conditionalAST(c *Conditional) *cw.Conditional {
	return &cw.Conditional{
		Negated: c.Negated,
		Key:     &cw.String{Text: c.Key},
		Items:   c.Body.astItems(),
	}
}

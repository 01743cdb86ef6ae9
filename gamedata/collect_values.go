package gamedata

import (
	"strings"

	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/model"
	"github.com/rlch/cw/resolver"
	"github.com/rlch/cw/schema"
)

// valueSets maps value set names to the values assigned to them.
type valueSets map[string]interner.Set

func (v valueSets) add(name, value string) {
	// flag@scope declares the flag; the suffix names the scope it is set on.
	value, _, _ = strings.Cut(value, "@")
	if value == "" {
		return
	}

	set, ok := v[name]
	if !ok {
		set = make(interner.Set)
		v[name] = set
	}

	set.Insert(value)
}

func (v valueSets) merge(o valueSets) {
	for name, set := range o {
		if existing, ok := v[name]; ok {
			existing.Union(set)

			continue
		}

		v[name] = set.Clone()
	}
}

// valueSetCollector records every string written where the schema expects
// value_set[x].
type valueSetCollector struct {
	r   *resolver.Resolver
	out valueSets
}

func (c *valueSetCollector) entity(st *resolver.ScopedType, e *model.Entity, depth int) {
	if depth > maxWalkDepth {
		return
	}

	for _, list := range e.Properties.All() {
		for _, p := range list {
			child, err := c.r.Property(st, p.Key)
			if err != nil {
				continue
			}

			c.value(child, p.Key, p.Value, depth)
		}
	}

	for _, item := range e.Items {
		s, ok := model.AsString(item)
		if !ok {
			continue
		}

		for _, m := range st.Each() {
			for _, b := range blockTypes(c.r.Structural(m.Type)) {
				for _, flag := range b.Flags {
					for _, name := range valueSetNames(c.r, flag) {
						c.out.add(name, s.Text)
					}
				}
			}

			for _, name := range arrayValueSets(c.r, m.Type) {
				c.out.add(name, s.Text)
			}
		}
	}

	for _, cond := range e.Conditionals {
		c.entity(st, cond.Body, depth+1)
	}
}

func (c *valueSetCollector) value(st *resolver.ScopedType, key string, v model.Value, depth int) {
	if sub, ok := model.AsEntity(v); ok {
		narrowed, err := c.r.Narrow(st, key, sub)
		if err != nil {
			narrowed = st
		}

		c.entity(narrowed, sub, depth+1)

		return
	}

	s, ok := model.AsString(v)
	if !ok {
		return
	}

	for _, m := range st.Each() {
		for _, name := range valueSetNames(c.r, m.Type) {
			c.out.add(name, s.Text)
		}
	}
}

// valueSetNames lists the value sets t declares, looking through unions,
// comparables and single aliases.
func valueSetNames(r *resolver.Resolver, t *schema.Type) []string {
	t = r.Structural(t)

	switch t.Kind {
	case schema.KindReference:
		if t.Ref.Kind == schema.RefValueSet {
			return []string{t.Ref.Key}
		}
	case schema.KindUnion:
		var out []string
		for _, m := range t.Members {
			out = append(out, valueSetNames(r, m)...)
		}

		return out
	}

	return nil
}

func arrayValueSets(r *resolver.Resolver, t *schema.Type) []string {
	t = r.Structural(t)
	if t.Kind != schema.KindArray {
		return nil
	}

	return valueSetNames(r, t.Elem)
}

func blockTypes(t *schema.Type) []*schema.BlockType {
	switch t.Kind {
	case schema.KindBlock:
		return []*schema.BlockType{t.Block}
	case schema.KindUnion:
		var out []*schema.BlockType
		for _, m := range t.Members {
			out = append(out, blockTypes(m)...)
		}

		return out
	}

	return nil
}

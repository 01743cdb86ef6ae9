package schema

import (
	"strings"

	"github.com/rlch/cw"
	"github.com/rlch/cw/cwt"
)

// convertRule lowers the right-hand side of a rule.
func (a *Analyzer) convertRule(r *cwt.Rule) *Type {
	t := a.convertValue(r.Value)
	if r.Comparable() {
		return ComparableOf(t)
	}

	return t
}

func (a *Analyzer) convertValue(v cwt.Value) *Type {
	switch v := v.(type) {
	case *cwt.Identifier:
		return identifierType(v)
	case *cwt.Block:
		return a.convertBlock(v)
	}

	return Unknown
}

// identifierType lowers a scalar: plain words become literals, typed
// identifiers become primitives or references.
func identifierType(id *cwt.Identifier) *Type {
	switch {
	case id.Quoted || id.Kind == cwt.KindPlain:
		if id.Text == "inline_script" {
			return &Type{Kind: KindReference, Ref: &Reference{Kind: RefInlineScript}}
		}

		return LiteralOf(id.Text)
	case id.Kind.IsSimple():
		return SimpleOf(id.Kind, id.Range)
	case id.Kind == cwt.KindTypeRef:
		if id.Prefix != "" || id.Suffix != "" {
			return &Type{Kind: KindReference, Ref: &Reference{
				Kind: RefTypeWithAffix, Key: id.Name, Prefix: id.Prefix, Suffix: id.Suffix,
			}}
		}

		return RefOf(RefType, id.Name)
	}

	if k, ok := refKinds[id.Kind]; ok {
		return RefOf(k, id.Name)
	}

	return LiteralOf(id.Text)
}

// convertBlock lowers a block. Plain keys become named properties, typed
// keys become patterns, subtype[x] keys become subtype overlays and bare
// items become flags. A block holding only one kind of bare item is a list.
func (a *Analyzer) convertBlock(b *cwt.Block) *Type {
	bt := NewBlockType()

	var (
		flags    []*Type
		hasRules bool
	)

	for _, it := range b.Items {
		switch it := it.(type) {
		case *cwt.Rule:
			hasRules = true

			a.addRule(bt, it)
		case *cwt.BareValue:
			flags = append(flags, a.convertValue(it.Value))
		}
	}

	if !hasRules && len(flags) > 0 && sameShape(flags) {
		if flags[0].Kind == KindLiteral && len(flags) > 1 {
			words := make([]string, len(flags))
			for i, f := range flags {
				words[i] = f.Literal
			}

			return ArrayOf(LiteralSetOf(words))
		}

		return ArrayOf(flags[0])
	}

	bt.Flags = flags

	return &Type{Kind: KindBlock, Block: bt}
}

// sameShape reports whether every flag has the same kind and, for
// non-literals, the same rendering.
func sameShape(ts []*Type) bool {
	for _, t := range ts[1:] {
		if t.Kind != ts[0].Kind {
			return false
		}

		if t.Kind != KindLiteral && t.String() != ts[0].String() {
			return false
		}
	}

	return true
}

func (a *Analyzer) addRule(bt *BlockType, r *cwt.Rule) {
	key := r.Key
	opts := OptionsFrom(r.Metadata())

	switch {
	case key.Kind == cwt.KindSubtype:
		a.addSubtypeOverlay(bt, r)
	case key.Quoted || key.Kind == cwt.KindPlain:
		bt.addProperty(&Property{Key: key.Text, Type: a.convertRule(r), Options: opts})
	case key.Kind == cwt.KindAlias || key.Kind == cwt.KindType:
		a.errorf(UnsupportedFeature, r.Span(), "%s is only allowed at the top level", key.Text)
	default:
		bt.Patterns = append(bt.Patterns, &PatternProperty{
			Key:     identifierType(key),
			Value:   a.convertRule(r),
			Options: opts,
		})
	}
}

// addSubtypeOverlay records the properties a subtype adds to bt.
func (a *Analyzer) addSubtypeOverlay(bt *BlockType, r *cwt.Rule) {
	name, inverted := subtypeName(r.Key)

	body, ok := r.Value.(*cwt.Block)
	if !ok || name == "" {
		a.errorf(InvalidSubtypeFormat, r.Span(), "%s must be a block", r.Key.Text)

		return
	}

	s := bt.subtype(name)
	s.Inverted = s.Inverted || inverted

	overlay := a.convertBlock(body)
	if overlay.Kind != KindBlock {
		// A subtype body holding only bare items still overlays them as flags.
		s.Block.Flags = append(s.Block.Flags, overlay.Elem)

		return
	}

	for _, p := range overlay.Block.PropertyList() {
		s.Block.addProperty(p)
	}

	s.Block.Patterns = append(s.Block.Patterns, overlay.Block.Patterns...)
	s.Block.Flags = append(s.Block.Flags, overlay.Block.Flags...)
}

func subtypeName(id *cwt.Identifier) (name string, inverted bool) {
	name, inverted = strings.CutPrefix(id.Name, "!")

	return name, inverted || id.Negated
}

// subtypeConditions derives the conditions of a subtype declared in the
// types section.
func (a *Analyzer) subtypeConditions(r *cwt.Rule) *Subtype {
	name, inverted := subtypeName(r.Key)
	s := &Subtype{Name: name, Inverted: inverted, Options: OptionsFrom(r.Metadata()), Block: NewBlockType()}

	if s.Options.StartsWith != "" {
		s.Conditions = append(s.Conditions, Condition{Kind: CondKeyStartsWith, Value: s.Options.StartsWith})
	}

	if len(s.Options.TypeKeyFilter) > 0 {
		s.Conditions = append(s.Conditions, Condition{
			Kind: CondKeyMatches, Keys: s.Options.TypeKeyFilter, Negated: s.Options.TypeKeyNegated,
		})
	}

	body, ok := r.Value.(*cwt.Block)
	if !ok {
		a.errorf(InvalidSubtypeFormat, r.Span(), "%s must be a block", r.Key.Text)

		return s
	}

	for _, it := range body.Items {
		cr, ok := it.(*cwt.Rule)
		if !ok {
			a.errorf(InvalidSubtypeFormat, it.Span(), "subtype %s: conditions must be rules", name)

			continue
		}

		s.Conditions = append(s.Conditions, condition(cr))
	}

	return s
}

func condition(r *cwt.Rule) Condition {
	key := r.Key.Text
	card := r.Metadata().Cardinality()

	if card.Max == 0 {
		return Condition{Kind: CondNotExists, Key: key}
	}

	switch v := r.Value.(type) {
	case *cwt.Identifier:
		if !v.Quoted && v.Kind != cwt.KindPlain {
			return Condition{Kind: CondExists, Key: key}
		}

		if r.Op == cw.OpNotEquals || v.Negated {
			return Condition{Kind: CondNotEquals, Key: key, Value: strings.TrimPrefix(v.Text, "!")}
		}

		return Condition{Kind: CondEquals, Key: key, Value: v.Text}
	case *cwt.Block:
		return Condition{Kind: CondExpression, Key: key}
	}

	return Condition{Kind: CondExists, Key: key}
}

package schema

import (
	"strings"

	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/interner"
)

// visitEnum lowers `enum[name] = { a b c }`. Redefinitions extend the enum.
func (a *Analyzer) visitEnum(r *cwt.Rule) {
	body, ok := r.Value.(*cwt.Block)
	if !ok || r.Key.Name == "" {
		a.errorf(InvalidEnumFormat, r.Span(), "%s must be a block of values", r.Key.Text)

		return
	}

	k := interner.Intern(r.Key.Name)

	e, ok := a.enums[k]
	if !ok {
		e = &Enum{Name: r.Key.Name, Set: make(interner.Set), Span: r.Span()}
		a.enums[k] = e
	}

	for _, it := range body.Items {
		bv, ok := it.(*cwt.BareValue)
		if !ok {
			a.errorf(InvalidEnumFormat, it.Span(), "enum[%s]: expected a value", e.Name)

			continue
		}

		id, ok := bv.Value.(*cwt.Identifier)
		if !ok {
			a.errorf(InvalidEnumFormat, it.Span(), "enum[%s]: nested blocks are not allowed", e.Name)

			continue
		}

		if e.Set.Has(interner.Intern(id.Text)) {
			continue
		}

		e.Set.Insert(id.Text)
		e.Values = append(e.Values, id.Text)
	}
}

// visitComplexEnum lowers
// `complex_enum[name] = { path = ... start_from_root = yes name = { ... } }`.
func (a *Analyzer) visitComplexEnum(r *cwt.Rule) {
	body, ok := r.Value.(*cwt.Block)
	if !ok || r.Key.Name == "" {
		a.errorf(InvalidComplexEnum, r.Span(), "%s must be a block", r.Key.Text)

		return
	}

	e := &ComplexEnum{Name: r.Key.Name, Span: r.Span()}

	for _, it := range body.Items {
		cr, ok := it.(*cwt.Rule)
		if !ok {
			continue
		}

		switch strings.ToLower(cr.Key.Text) {
		case "path":
			if id, ok := cr.Value.(*cwt.Identifier); ok {
				e.Paths = append(e.Paths, gamePath(id.Text))
			}
		case "start_from_root":
			id, _ := cr.Value.(*cwt.Identifier)
			e.StartFromRoot = isYes(id)
		case "name":
			e.Structure = a.convertValue(cr.Value)
		}
	}

	switch {
	case len(e.Paths) == 0:
		a.errorf(InvalidComplexEnum, r.Span(), "complex_enum[%s] has no path", e.Name)
	case e.Structure == nil:
		a.errorf(InvalidComplexEnum, r.Span(), "complex_enum[%s] has no name structure", e.Name)
	default:
		a.complexEnums[interner.Intern(e.Name)] = e
	}
}

// visitValueSet lowers `value[name] = { a b }` from the values section.
func (a *Analyzer) visitValueSet(r *cwt.Rule) {
	if r.Key.Kind != cwt.KindValue || r.Key.Name == "" {
		a.errorf(InvalidRuleDefinition, r.Span(), "%s is not a value set", r.Key.Text)

		return
	}

	body, ok := r.Value.(*cwt.Block)
	if !ok {
		a.errorf(InvalidRuleDefinition, r.Span(), "value[%s] must be a block", r.Key.Name)

		return
	}

	k := interner.Intern(r.Key.Name)

	vs, ok := a.valueSets[k]
	if !ok {
		vs = &ValueSet{Name: r.Key.Name, Span: r.Span()}
		a.valueSets[k] = vs
	}

	for _, id := range body.Values() {
		vs.Values = append(vs.Values, id.Text)
	}
}

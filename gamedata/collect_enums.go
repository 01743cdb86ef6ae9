package gamedata

import (
	"strings"

	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/model"
	"github.com/rlch/cw/schema"
)

// collectComplexEnum mines the values of one complex enum from the
// namespaces under its paths.
func collectComplexEnum(ix *Index, ce *schema.ComplexEnum) interner.Set {
	out := make(interner.Set)

	for _, name := range ix.Namespaces() {
		if !underAny(name, ce.Paths) {
			continue
		}

		ns, _ := ix.Namespace(name)

		if ce.StartFromRoot {
			for _, m := range ns.Modules() {
				extractEnum(ce.Structure, m.Entity, out, 0)
			}

			continue
		}

		for _, list := range ns.Properties.All() {
			for _, p := range list {
				if e, ok := model.AsEntity(p.Value); ok {
					extractEnum(ce.Structure, e, out, 0)
				}
			}
		}
	}

	return out
}

func underAny(namespace string, paths []string) bool {
	for _, p := range paths {
		if strings.EqualFold(namespace, p) {
			return true
		}

		if len(namespace) > len(p) && namespace[len(p)] == '/' && strings.EqualFold(namespace[:len(p)], p) {
			return true
		}
	}

	return false
}

func isEnumMarker(t *schema.Type) bool {
	t = t.Unwrap()

	return t != nil && t.Kind == schema.KindLiteral && strings.EqualFold(t.Literal, schema.EnumNameMarker)
}

// isAnyKey reports whether a pattern key matches every key, so that the
// pattern's value is walked under each property.
func isAnyKey(t *schema.Type) bool {
	t = t.Unwrap()

	return t != nil && (t.Kind == schema.KindSimple || t.Kind == schema.KindAny)
}

// extractEnum walks e alongside the structure t. enum_name as a property
// value takes the value, as a key takes the key, and as a bare item takes
// every bare string of the block.
func extractEnum(t *schema.Type, e *model.Entity, out interner.Set, depth int) {
	if t == nil || depth > maxWalkDepth {
		return
	}

	t = t.Unwrap()

	switch t.Kind {
	case schema.KindUnion:
		for _, m := range t.Members {
			extractEnum(m, e, out, depth+1)
		}

		return
	case schema.KindArray:
		if isEnumMarker(t.Elem) {
			addStrings(e.Items, out)
		}

		return
	case schema.KindBlock:
	default:
		return
	}

	b := t.Block

	for _, p := range b.PropertyList() {
		for _, v := range e.Get(p.Key).Values() {
			extractValue(p.Type, v, out, depth)
		}
	}

	for _, pat := range b.Patterns {
		keyMarker := isEnumMarker(pat.Key)
		if !keyMarker && !isAnyKey(pat.Key) {
			continue
		}

		for _, list := range e.Properties.All() {
			for _, p := range list {
				if keyMarker {
					out.Insert(p.Key)
				}

				extractValue(pat.Value, p.Value, out, depth)
			}
		}
	}

	for _, flag := range b.Flags {
		if isEnumMarker(flag) {
			addStrings(e.Items, out)
		}
	}
}

func extractValue(t *schema.Type, v model.Value, out interner.Set, depth int) {
	if isEnumMarker(t) {
		if s, ok := model.AsString(v); ok {
			out.Insert(s.Text)
		}

		return
	}

	if sub, ok := model.AsEntity(v); ok {
		extractEnum(t, sub, out, depth+1)
	}
}

func addStrings(items []model.Value, out interner.Set) {
	for _, v := range items {
		if s, ok := model.AsString(v); ok {
			out.Insert(s.Text)
		}
	}
}

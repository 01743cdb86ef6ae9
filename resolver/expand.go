package resolver

import (
	"slices"

	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/schema"
)

// Expand replaces references in st's type with the literal words they
// stand for, where those are known: type keys, enum values, value set
// entries, alias names and the scope navigations of scope[x]. Other types
// are returned unchanged.
func (r *Resolver) Expand(st *ScopedType) *ScopedType {
	if st.IsUnion() {
		out := &ScopedType{Scope: st.Scope}
		for _, m := range st.Members {
			out.Members = append(out.Members, r.Expand(m))
		}

		return out
	}

	expanded := *st
	expanded.Type = r.expandType(st, st.Type, 0)

	return &expanded
}

func (r *Resolver) expandType(st *ScopedType, t *schema.Type, depth int) *schema.Type {
	if t == nil || depth > maxExpansion {
		return t
	}

	switch t.Kind {
	case schema.KindComparable:
		return schema.ComparableOf(r.expandType(st, t.Elem, depth+1))
	case schema.KindUnion:
		members := make([]*schema.Type, len(t.Members))
		for i, m := range t.Members {
			members[i] = r.expandType(st, m, depth+1)
		}

		return schema.UnionOf(members...)
	case schema.KindReference:
	default:
		return t
	}

	words, ok := r.Words(st, t.Ref)
	if !ok {
		if t.Ref.Kind == schema.RefSingleAlias {
			if next, ok := r.schema.SingleAlias(t.Ref.Key); ok {
				return r.expandType(st, next, depth+1)
			}
		}

		return t
	}

	return schema.LiteralSetOf(words)
}

// Words returns the words a reference accepts, sorted, when they are
// enumerable.
func (r *Resolver) Words(st *ScopedType, ref *schema.Reference) ([]string, bool) {
	var words []string

	switch ref.Kind {
	case schema.RefType:
		keys, ok := r.typeKeys(ref.Key)
		if !ok {
			return nil, false
		}

		words = keys
	case schema.RefTypeWithAffix:
		keys, ok := r.typeKeys(ref.Key)
		if !ok {
			return nil, false
		}

		for _, k := range keys {
			words = append(words, ref.Prefix+k+ref.Suffix)
		}
	case schema.RefEnum:
		if e, ok := r.schema.Enum(ref.Key); ok {
			words = slices.Clone(e.Values)

			break
		}

		return r.dataWords(r.complexEnumValues, ref.Key)
	case schema.RefComplexEnum:
		return r.dataWords(r.complexEnumValues, ref.Key)
	case schema.RefValue:
		if vs, ok := r.schema.ValueSet(ref.Key); ok {
			words = append(words, vs.Values...)
		}

		if dyn, ok := r.dataWords(r.valueSetValues, ref.Key); ok {
			words = append(words, dyn...)
		}

		if len(words) == 0 {
			return nil, false
		}
	case schema.RefScope, schema.RefScopeGroup:
		words = r.Navigations(st.Scope)
	case schema.RefAliasName, schema.RefAliasKeysField:
		for _, a := range r.schema.Aliases(ref.Key) {
			if a.Name.Kind == schema.AliasStatic {
				words = append(words, a.Name.Name)
			}
		}
	default:
		return nil, false
	}

	slices.Sort(words)

	return slices.Compact(words), true
}

func (r *Resolver) typeKeys(name string) ([]string, bool) {
	if r.data == nil {
		return nil, false
	}

	keys, ok := r.data.TypeKeys(name)
	if !ok {
		return nil, false
	}

	return keys.Strings(interner.Default()), true
}

func (r *Resolver) complexEnumValues(name string) (interner.Set, bool) {
	return r.data.ComplexEnumValues(name)
}

func (r *Resolver) valueSetValues(name string) (interner.Set, bool) {
	return r.data.ValueSetValues(name)
}

func (r *Resolver) dataWords(fn func(string) (interner.Set, bool), name string) ([]string, bool) {
	if r.data == nil {
		return nil, false
	}

	set, ok := fn(name)
	if !ok {
		return nil, false
	}

	words := set.Strings(interner.Default())
	slices.Sort(words)

	return words, true
}

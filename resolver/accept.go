package resolver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/schema"
	"github.com/rlch/cw/scope"
)

var dateRE = regexp.MustCompile(`^-?\d{1,5}\.\d{1,2}\.\d{1,2}$`)

// AcceptsValue reports whether text is a valid value for st. Scripted
// variables are always accepted, and parameters inside scripted effects.
func (r *Resolver) AcceptsValue(st *ScopedType, text string) bool {
	if strings.HasPrefix(text, "@") {
		return true
	}

	if st.InScriptedEffect && strings.Contains(text, "$") {
		return true
	}

	for _, m := range st.Each() {
		if r.Accepts(m.Type, text, m.Scope) {
			return true
		}
	}

	return false
}

// MatchesKey reports whether a pattern key type matches key.
func (r *Resolver) MatchesKey(t *schema.Type, key string, s *scope.Stack) bool {
	return r.accepts(t, key, s, 0)
}

// Accepts reports whether text is a valid scalar of type t in scope s.
func (r *Resolver) Accepts(t *schema.Type, text string, s *scope.Stack) bool {
	return r.accepts(t, text, s, 0)
}

func (r *Resolver) accepts(t *schema.Type, text string, s *scope.Stack, depth int) bool {
	if depth > maxExpansion {
		return true
	}

	t = t.Unwrap()
	if t == nil {
		return true
	}

	switch t.Kind {
	case schema.KindAny, schema.KindUnknown:
		return true
	case schema.KindSimple:
		return r.acceptsSimple(t, text, s)
	case schema.KindLiteral:
		return interner.Default().Equal(t.Literal, text)
	case schema.KindLiteralSet:
		k, ok := interner.Get(text)

		return ok && t.Set.Has(k)
	case schema.KindReference:
		return r.acceptsRef(t.Ref, text, s, depth)
	case schema.KindUnion:
		for _, m := range t.Members {
			if r.accepts(m, text, s, depth+1) {
				return true
			}
		}
	}

	return false
}

func (r *Resolver) acceptsSimple(t *schema.Type, text string, s *scope.Stack) bool {
	switch t.Simple {
	case cwt.KindBool:
		return strings.EqualFold(text, "yes") || strings.EqualFold(text, "no")
	case cwt.KindInt:
		n, err := strconv.ParseInt(text, 10, 64)

		return err == nil && inRange(t.Range, float64(n))
	case cwt.KindFloat:
		f, err := strconv.ParseFloat(text, 64)

		return err == nil && inRange(t.Range, f)
	case cwt.KindPercentageField:
		f, err := strconv.ParseFloat(strings.TrimSuffix(text, "%"), 64)

		return err == nil && strings.HasSuffix(text, "%") && inRange(t.Range, f)
	case cwt.KindDateField:
		return dateRE.MatchString(text)
	case cwt.KindScopeField:
		_, err := r.ScopePath(s, text)

		return err == nil
	case cwt.KindScalar:
		return text != ""
	}

	return true
}

func inRange(r *cwt.Range, f float64) bool { return r == nil || r.Contains(f) }

func (r *Resolver) acceptsRef(ref *schema.Reference, text string, s *scope.Stack, depth int) bool {
	switch ref.Kind {
	case schema.RefType:
		return r.hasTypeKey(ref.Key, text)
	case schema.RefTypeWithAffix:
		name, ok := trimAffix(text, ref.Prefix, ref.Suffix)

		return ok && r.hasTypeKey(ref.Key, name)
	case schema.RefEnum:
		if e, ok := r.schema.Enum(ref.Key); ok {
			k, ok := interner.Get(text)

			return ok && e.Set.Has(k)
		}

		return r.hasComplexEnumValue(ref.Key, text)
	case schema.RefComplexEnum:
		return r.hasComplexEnumValue(ref.Key, text)
	case schema.RefValue:
		if vs, ok := r.schema.ValueSet(ref.Key); ok {
			for _, v := range vs.Values {
				if interner.Default().Equal(v, text) {
					return true
				}
			}
		}

		return r.hasSetValue(ref.Key, text)
	case schema.RefScope:
		return r.acceptsScope(text, s, ref.Key)
	case schema.RefScopeGroup:
		group, ok := r.schema.ScopeGroup(ref.Key)
		if !ok {
			return r.acceptsScope(text, s, "any")
		}

		end, err := r.ScopePath(s, text)

		return err == nil && end.Matches(group...)
	case schema.RefAliasName, schema.RefAliasKeysField:
		return len(r.MatchingAliases(ref.Key, text, s)) > 0
	case schema.RefSingleAlias:
		t, ok := r.schema.SingleAlias(ref.Key)

		return !ok || r.accepts(t, text, s, depth+1)
	}

	return true
}

func (r *Resolver) acceptsScope(text string, s *scope.Stack, want string) bool {
	end, err := r.ScopePath(s, text)
	if err != nil {
		return false
	}

	sp, ok := r.schema.ResolveScopeName(want)
	if !ok {
		return true
	}

	return end.Matches(sp)
}

func (r *Resolver) hasTypeKey(typeName, key string) bool {
	if r.data == nil {
		return true
	}

	keys, ok := r.data.TypeKeys(typeName)
	if !ok {
		return true
	}

	k, ok := interner.Get(key)

	return ok && keys.Has(k)
}

func (r *Resolver) hasComplexEnumValue(name, text string) bool {
	if r.data == nil {
		return true
	}

	vals, ok := r.data.ComplexEnumValues(name)
	if !ok {
		return true
	}

	k, ok := interner.Get(text)

	return ok && vals.Has(k)
}

func (r *Resolver) hasSetValue(name, text string) bool {
	if r.data == nil {
		return true
	}

	vals, ok := r.data.ValueSetValues(name)
	if !ok {
		return true
	}

	k, ok := interner.Get(text)

	return ok && vals.Has(k)
}

// MatchingAliases returns the aliases of category whose name matches key.
// Static names take precedence over type and enum references.
func (r *Resolver) MatchingAliases(category, key string, s *scope.Stack) []*schema.Alias {
	var static, dynamic []*schema.Alias

	for _, a := range r.schema.Aliases(category) {
		switch a.Name.Kind {
		case schema.AliasStatic:
			if interner.Default().Equal(a.Name.Name, key) {
				static = append(static, a)
			}
		case schema.AliasTypeRef:
			if r.hasTypeKey(a.Name.Name, key) {
				dynamic = append(dynamic, a)
			}
		case schema.AliasTypeRefWithAffix:
			if name, ok := trimAffix(key, a.Name.Prefix, a.Name.Suffix); ok && r.hasTypeKey(a.Name.Name, name) {
				dynamic = append(dynamic, a)
			}
		case schema.AliasEnum:
			if r.acceptsRef(&schema.Reference{Kind: schema.RefEnum, Key: a.Name.Name}, key, s, 0) {
				dynamic = append(dynamic, a)
			}
		}
	}

	if len(static) > 0 {
		return static
	}

	return dynamic
}

func trimAffix(s, prefix, suffix string) (string, bool) {
	if len(s) < len(prefix)+len(suffix) {
		return "", false
	}

	if !strings.EqualFold(s[:len(prefix)], prefix) || !strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return "", false
	}

	name := s[len(prefix) : len(s)-len(suffix)]

	return name, name != ""
}

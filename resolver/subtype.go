package resolver

import (
	"slices"
	"strings"

	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/model"
	"github.com/rlch/cw/schema"
	"github.com/rlch/cw/scope"
)

// Root returns the ScopedType of a definition's entity: its body type, with
// the body's scope directives applied to a fresh stack and subtypes narrowed
// against e. e may be nil.
func (r *Resolver) Root(def *schema.TypeDefinition, key string, e *model.Entity) (*ScopedType, error) {
	return r.RootIn(def, key, e, "")
}

// RootIn is Root with a default root scope, used when the body does not
// push one. An empty or unknown name leaves the scope unknown.
func (r *Resolver) RootIn(def *schema.TypeDefinition, key string, e *model.Entity, rootScope string) (*ScopedType, error) {
	st := &ScopedType{Type: schema.Any, Scope: scope.NewUnknown()}

	if rootScope != "" {
		if sp, ok := r.schema.ResolveScopeName(rootScope); ok {
			st.Scope = scope.New(sp)
		}
	}

	if def.Body != nil {
		st.Type = def.Body.Type
		st.Options = def.Body.Options

		if push := def.Body.Options.PushScope; push != "" {
			sp, ok := r.schema.ResolveScopeName(push)
			if !ok {
				return st, &scope.Error{Op: "push", Name: push, Err: scope.ErrUnknownScope}
			}

			st.Scope = scope.New(sp)
		}

		if replace := def.Body.Options.ReplaceScope; len(replace) > 0 {
			if err := st.Scope.ReplaceScopeFromStrings(r.schema, replace); err != nil {
				return st, err
			}
		}
	}

	if e == nil {
		return st, nil
	}

	return r.Narrow(st, key, e)
}

// Narrow activates the subtypes of st whose conditions hold for the entity
// e stored under key, and applies their scope directives in declaration
// order. Narrowing a union narrows each member.
func (r *Resolver) Narrow(st *ScopedType, key string, e *model.Entity) (*ScopedType, error) {
	if st.IsUnion() {
		out := &ScopedType{Scope: st.Scope}

		for _, m := range st.Members {
			n, err := r.Narrow(m, key, e)
			if err != nil {
				return nil, err
			}

			out.Members = append(out.Members, n)
		}

		return out, nil
	}

	narrowed := *st
	narrowed.Subtypes = nil
	narrowed.Scope = st.Scope.Branch()

	for _, b := range blocksOf(r.Structural(st.Type)) {
		for _, s := range b.Subtypes {
			if slices.Contains(narrowed.Subtypes, s.Name) || !SubtypeMatches(s, key, e) {
				continue
			}

			narrowed.Subtypes = append(narrowed.Subtypes, s.Name)

			if err := r.applyOptions(narrowed.Scope, s.Options); err != nil {
				return &narrowed, err
			}
		}
	}

	return &narrowed, nil
}

func blocksOf(t *schema.Type) []*schema.BlockType {
	switch t.Kind {
	case schema.KindBlock:
		return []*schema.BlockType{t.Block}
	case schema.KindUnion:
		var out []*schema.BlockType
		for _, m := range t.Members {
			if m.IsBlock() {
				out = append(out, m.Block)
			}
		}

		return out
	}

	return nil
}

// SubtypeMatches evaluates s's conditions against e. A subtype without
// conditions always matches; an inverted one matches when its conditions
// do not.
func SubtypeMatches(s *schema.Subtype, key string, e *model.Entity) bool {
	ok := true

	for _, c := range s.Conditions {
		if !conditionHolds(c, key, e) {
			ok = false

			break
		}
	}

	if s.Inverted && len(s.Conditions) > 0 {
		return !ok
	}

	return ok
}

func conditionHolds(c schema.Condition, key string, e *model.Entity) bool {
	switch c.Kind {
	case schema.CondEquals:
		return slices.ContainsFunc(e.Get(c.Key).Values(), textEquals(c.Value))
	case schema.CondNotEquals:
		return !slices.ContainsFunc(e.Get(c.Key).Values(), textEquals(c.Value))
	case schema.CondExists, schema.CondExpression:
		return e.Properties.Has(c.Key)
	case schema.CondNotExists:
		return !e.Properties.Has(c.Key)
	case schema.CondKeyStartsWith:
		return len(key) >= len(c.Value) && strings.EqualFold(key[:len(c.Value)], c.Value)
	case schema.CondKeyMatches:
		listed := slices.ContainsFunc(c.Keys, func(k string) bool { return interner.Default().Equal(k, key) })

		return listed != c.Negated
	}

	return true
}

func textEquals(want string) func(model.Value) bool {
	return func(v model.Value) bool { return interner.Default().Equal(model.Text(v), want) }
}

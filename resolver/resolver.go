package resolver

import (
	"errors"
	"strings"

	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/schema"
	"github.com/rlch/cw/scope"
)

// maxExpansion bounds single alias and union recursion.
const maxExpansion = 10

// Data answers questions about values found in game files. A nil Data
// accepts every reference.
type Data interface {
	// TypeKeys returns the keys of every entity of a type. ok is false when
	// the type has not been indexed.
	TypeKeys(typeName string) (keys interner.Set, ok bool)
	ComplexEnumValues(name string) (interner.Set, bool)
	ValueSetValues(name string) (interner.Set, bool)
}

type memoKey struct {
	typ      *schema.Type
	scope    string
	subtypes string
	key      interner.Spur
}

type memoEntry struct {
	st  *ScopedType
	err error
}

// Resolver navigates a schema. It is not safe for concurrent use.
type Resolver struct {
	schema *schema.Analyzer
	data   Data
	memo   map[memoKey]memoEntry
}

// New returns a resolver over s. data may be nil.
func New(s *schema.Analyzer, data Data) *Resolver {
	return &Resolver{schema: s, data: data, memo: make(map[memoKey]memoEntry)}
}

// Schema returns the analyzer the resolver navigates.
func (r *Resolver) Schema() *schema.Analyzer { return r.schema }

// Property returns the type of key's value inside parent. Errors wrap
// ErrUnknownKey, ErrInvalidLink or scope.ErrOverflow.
func (r *Resolver) Property(parent *ScopedType, key string) (*ScopedType, error) {
	if parent.IsUnion() {
		return r.property(parent, key, 0)
	}

	mk := memoKey{
		typ:      parent.Type,
		scope:    parent.Scope.Key(),
		subtypes: strings.Join(parent.Subtypes, ","),
		key:      interner.Intern(key),
	}

	if e, ok := r.memo[mk]; ok {
		return e.st, e.err
	}

	st, err := r.property(parent, key, 0)
	r.memo[mk] = memoEntry{st: st, err: err}

	return st, err
}

func (r *Resolver) property(parent *ScopedType, key string, depth int) (*ScopedType, error) {
	if depth > maxExpansion {
		return nil, &KeyError{Key: key}
	}

	if parent.IsUnion() {
		return r.eachMember(parent.Members, key, depth)
	}

	t := r.Structural(parent.Type)

	switch t.Kind {
	case schema.KindAny, schema.KindUnknown:
		return &ScopedType{Type: schema.Any, Scope: parent.Scope, InScriptedEffect: parent.InScriptedEffect}, nil
	case schema.KindUnion:
		members := make([]*ScopedType, 0, len(t.Members))
		for _, m := range t.Members {
			if !r.Structural(m).IsBlock() {
				continue
			}

			members = append(members, &ScopedType{
				Type:             m,
				Scope:            parent.Scope,
				Subtypes:         parent.Subtypes,
				InScriptedEffect: parent.InScriptedEffect,
			})
		}

		if len(members) == 0 {
			return nil, &KeyError{Key: key}
		}

		return r.eachMember(members, key, depth)
	case schema.KindBlock:
	default:
		return nil, &KeyError{Key: key}
	}

	matches := r.blockMatches(t.Block, parent, key)
	if len(matches) == 0 {
		return r.navigate(parent, key)
	}

	var (
		found    []*ScopedType
		firstErr error
	)

	for _, m := range matches {
		st, err := r.child(parent, key, m)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}

			continue
		}

		found = append(found, st)
	}

	if u := unionOf(found); u != nil {
		return u, nil
	}

	return nil, firstErr
}

// eachMember resolves key in every alternative and unions the hits.
func (r *Resolver) eachMember(members []*ScopedType, key string, depth int) (*ScopedType, error) {
	var (
		found    []*ScopedType
		firstErr error
	)

	for _, m := range members {
		st, err := r.property(m, key, depth+1)
		if err != nil {
			if firstErr == nil || errors.Is(firstErr, ErrUnknownKey) {
				firstErr = err
			}

			continue
		}

		found = append(found, st)
	}

	if u := unionOf(found); u != nil {
		return u, nil
	}

	return nil, firstErr
}

type match struct {
	typ  *schema.Type
	opts schema.Options
}

// blockMatches looks key up in three tiers: active subtype overlays, named
// properties, then patterns. The first tier with a hit wins.
func (r *Resolver) blockMatches(b *schema.BlockType, parent *ScopedType, key string) []match {
	var out []match

	for _, s := range b.Subtypes {
		if !parent.HasSubtype(s.Name) {
			continue
		}

		if p, ok := s.Block.Property(key); ok {
			out = append(out, match{typ: p.Type, opts: p.Options})

			continue
		}

		out = append(out, r.patternMatches(s.Block.Patterns, key, parent.Scope)...)
	}

	if len(out) > 0 {
		return out
	}

	if p, ok := b.Property(key); ok {
		return []match{{typ: p.Type, opts: p.Options}}
	}

	return r.patternMatches(b.Patterns, key, parent.Scope)
}

func (r *Resolver) patternMatches(patterns []*schema.PatternProperty, key string, s *scope.Stack) []match {
	var out []match

	for _, p := range patterns {
		if r.MatchesKey(p.Key, key, s) {
			out = append(out, match{typ: p.Value, opts: p.Options})
		}
	}

	return out
}

// child builds the ScopedType of a matched rule, resolving
// alias_match_left against key and applying scope directives.
func (r *Resolver) child(parent *ScopedType, key string, m match) (*ScopedType, error) {
	v := m.typ.Unwrap()
	if v != nil && v.Kind == schema.KindReference && v.Ref.Kind == schema.RefAliasMatchLeft {
		aliases := r.MatchingAliases(v.Ref.Key, key, parent.Scope)
		if len(aliases) == 0 {
			return nil, &KeyError{Key: key}
		}

		var (
			found    []*ScopedType
			firstErr error
		)

		for _, a := range aliases {
			st, err := r.scoped(parent, a.Type, a, a.Options, m.opts)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}

				continue
			}

			found = append(found, st)
		}

		if u := unionOf(found); u != nil {
			return u, nil
		}

		return nil, firstErr
	}

	return r.scoped(parent, m.typ, nil, m.opts)
}

// scoped applies each option set in order to a branch of the parent scope.
func (r *Resolver) scoped(parent *ScopedType, t *schema.Type, alias *schema.Alias, opts ...schema.Options) (*ScopedType, error) {
	stack := parent.Scope.Branch()

	for _, o := range opts {
		if err := r.applyOptions(stack, o); err != nil {
			return nil, err
		}
	}

	return &ScopedType{
		Type:             t,
		Scope:            stack,
		InScriptedEffect: parent.InScriptedEffect,
		Options:          opts[len(opts)-1],
		Alias:            alias,
	}, nil
}

func (r *Resolver) applyOptions(s *scope.Stack, o schema.Options) error {
	if len(o.ReplaceScope) > 0 {
		if err := s.ReplaceScopeFromStrings(r.schema, o.ReplaceScope); err != nil {
			return err
		}
	}

	if o.PushScope != "" {
		return s.PushScopeType(r.schema, o.PushScope)
	}

	return nil
}

// navigate handles keys no rule names: scope frames, links and dotted
// scope paths, which keep the parent's shape in a new scope.
func (r *Resolver) navigate(parent *ScopedType, key string) (*ScopedType, error) {
	next := func(s *scope.Stack) *ScopedType {
		return &ScopedType{Type: parent.Type, Scope: s, InScriptedEffect: parent.InScriptedEffect}
	}

	if strings.Contains(key, ".") {
		s, err := r.ScopePath(parent.Scope, key)
		if err != nil {
			var pe *PathError
			if errors.As(err, &pe) && pe.Step == 0 && !errors.Is(err, ErrInvalidLink) {
				return nil, &KeyError{Key: key}
			}

			return nil, err
		}

		return next(s), nil
	}

	s, err := r.step(parent.Scope.Branch(), key)
	if err != nil {
		return nil, err
	}

	return next(s), nil
}

// step moves s through one frame name or link.
func (r *Resolver) step(s *scope.Stack, name string) (*scope.Stack, error) {
	if sp, ok := s.Frame(name); ok {
		return s, s.Push(sp)
	}

	l, ok := r.schema.Link(name)
	if !ok {
		return nil, &KeyError{Key: name}
	}

	if !s.IsUnknown() && !l.AcceptsInput(s.This()) {
		return nil, &LinkError{Link: name, Scope: interner.Resolve(s.This())}
	}

	out := l.OutputScope
	if out.IsZero() {
		out = scope.Any
	}

	return s, s.Push(out)
}

// ScopePath walks a dotted path such as root.owner.capital from s. The
// returned stack is independent of s.
func (r *Resolver) ScopePath(s *scope.Stack, path string) (*scope.Stack, error) {
	cur := s.Branch()

	for i, name := range strings.Split(path, ".") {
		before := cur.Branch()

		next, err := r.step(cur, name)
		if err != nil {
			if errors.Is(err, scope.ErrOverflow) {
				return nil, err
			}

			return nil, &PathError{Path: path, Step: i, Name: name, Available: r.Navigations(before), Err: err}
		}

		cur = next
	}

	return cur, nil
}

// Navigations lists the frame names and links usable from s.
func (r *Resolver) Navigations(s *scope.Stack) []string {
	out := s.FrameNames()
	for _, l := range r.schema.LinksFrom(s.This()) {
		if l.Prefix != "" {
			out = append(out, l.Prefix)

			continue
		}

		out = append(out, l.Name)
	}

	return out
}

// Structural strips comparable wrappers and expands single aliases, giving
// the type whose shape navigation sees.
func (r *Resolver) Structural(t *schema.Type) *schema.Type {
	for range maxExpansion {
		if t == nil {
			return schema.Unknown
		}

		t = t.Unwrap()
		if t.Kind != schema.KindReference || t.Ref.Kind != schema.RefSingleAlias {
			return t
		}

		next, ok := r.schema.SingleAlias(t.Ref.Key)
		if !ok {
			return schema.Unknown
		}

		t = next
	}

	return schema.Unknown
}

package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rlch/cw"
	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/interner"
)

// Analyzer holds the lowered tables of one or more schema files. Build it
// with AddFile or LoadDir, then treat it as read-only: lookups are safe for
// concurrent use once loading is done.
type Analyzer struct {
	types         map[interner.Spur]*TypeDefinition
	rules         map[interner.Spur]*Property
	enums         map[interner.Spur]*Enum
	complexEnums  map[interner.Spur]*ComplexEnum
	valueSets     map[interner.Spur]*ValueSet
	aliases       map[interner.Spur][]*Alias
	singleAliases map[interner.Spur]*Type
	scopes        []*Scope
	scopeNames    map[interner.Spur]interner.Spur
	scopeGroups   map[interner.Spur][]interner.Spur
	links         map[interner.Spur]*Link
	prefixLinks   []*Link

	errors []*ConversionError
}

// New returns an empty analyzer.
func New() *Analyzer {
	return &Analyzer{
		types:         make(map[interner.Spur]*TypeDefinition),
		rules:         make(map[interner.Spur]*Property),
		enums:         make(map[interner.Spur]*Enum),
		complexEnums:  make(map[interner.Spur]*ComplexEnum),
		valueSets:     make(map[interner.Spur]*ValueSet),
		aliases:       make(map[interner.Spur][]*Alias),
		singleAliases: make(map[interner.Spur]*Type),
		scopeNames:    make(map[interner.Spur]interner.Spur),
		scopeGroups:   make(map[interner.Spur][]interner.Spur),
		links:         make(map[interner.Spur]*Link),
	}
}

// Analyze lowers the given files into a new analyzer.
func Analyze(files ...*cwt.File) *Analyzer {
	a := New()
	for _, f := range files {
		a.AddFile(f)
	}

	return a
}

// LoadDir parses and adds every .cwt file below dir, in lexical order.
// Files that fail to parse are reported as errors; the rest still load.
func LoadDir(dir string) (*Analyzer, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".cwt") {
			paths = append(paths, p)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk schema directory: %w", err)
	}

	slices.Sort(paths)

	a := New()

	var parseErrs []error

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}

		f, err := cwt.ParseFile(p, data)
		if err != nil {
			parseErrs = append(parseErrs, err)

			continue
		}

		a.AddFile(f)
	}

	if len(parseErrs) > 0 {
		return a, fmt.Errorf("parse schema: %w", errors.Join(parseErrs...))
	}

	return a, nil
}

// AddFile lowers one file into the analyzer's tables.
func (a *Analyzer) AddFile(f *cwt.File) {
	for _, pe := range f.OptionErrors {
		kind := InvalidRuleDefinition
		if strings.Contains(pe.Msg, "cardinality") {
			kind = InvalidCardinality
		}

		a.errors = append(a.errors, &ConversionError{Kind: kind, Detail: pe.Msg, Span: pe.Span})
	}

	for _, it := range f.Items {
		r, ok := it.(*cwt.Rule)
		if !ok {
			a.errorf(InvalidRuleDefinition, it.Span(), "unexpected bare value at the top level")

			continue
		}

		a.visitTopLevel(r)
	}

	a.link()
}

// visitTopLevel dispatches a top-level rule to the visitor for its section
// or typed key.
func (a *Analyzer) visitTopLevel(r *cwt.Rule) {
	key := r.Key

	if !key.Quoted {
		switch key.Kind {
		case cwt.KindType:
			a.visitType(r)

			return
		case cwt.KindEnum:
			a.visitEnum(r)

			return
		case cwt.KindComplexEnum:
			a.visitComplexEnum(r)

			return
		case cwt.KindValue:
			a.visitValueSet(r)

			return
		case cwt.KindAlias:
			a.visitAlias(r)

			return
		case cwt.KindSingleAlias:
			a.visitSingleAlias(r, key.Name)

			return
		}

		if name, ok := singleAliasName(key.Text); ok {
			a.visitSingleAlias(r, name)

			return
		}
	}

	if key.Kind != cwt.KindPlain && !key.Quoted {
		a.errorf(InvalidRuleDefinition, r.Span(), "unexpected %s at the top level", key.Text)

		return
	}

	switch strings.ToLower(key.Text) {
	case "types":
		a.eachRule(r, a.visitType)
	case "enums":
		a.eachRule(r, func(r *cwt.Rule) {
			switch r.Key.Kind {
			case cwt.KindEnum:
				a.visitEnum(r)
			case cwt.KindComplexEnum:
				a.visitComplexEnum(r)
			default:
				a.errorf(InvalidEnumFormat, r.Span(), "%s is not an enum", r.Key.Text)
			}
		})
	case "values":
		a.eachRule(r, a.visitValueSet)
	case "scopes":
		a.eachRule(r, a.visitScope)
	case "scope_groups":
		a.eachRule(r, a.visitScopeGroup)
	case "links":
		a.eachRule(r, a.visitLink)
	case "aliases":
		a.eachRule(r, a.visitAlias)
	case "localisation_commands", "localisation_links", "modifiers", "modifier_categories", "folders":
		// Tables used only by localisation and modifier validation.
	default:
		a.visitRule(r)
	}
}

// eachRule applies fn to every rule of a section block.
func (a *Analyzer) eachRule(section *cwt.Rule, fn func(*cwt.Rule)) {
	b, ok := section.Value.(*cwt.Block)
	if !ok {
		a.errorf(InvalidRuleDefinition, section.Span(), "%s must be a block", section.Key.Text)

		return
	}

	for _, it := range b.Items {
		if r, ok := it.(*cwt.Rule); ok {
			fn(r)
		}
	}
}

// visitRule records a top-level rule such as `building = { ... }`: the body
// of the type of the same name. Repeated rules union.
func (a *Analyzer) visitRule(r *cwt.Rule) {
	k := interner.Intern(r.Key.Text)
	t := a.convertRule(r)

	if t.IsBlock() {
		t.Block.Name = r.Key.Text
	}

	if existing, ok := a.rules[k]; ok {
		existing.Type = UnionOf(existing.Type, t)

		return
	}

	a.rules[k] = &Property{Key: r.Key.Text, Type: t, Options: OptionsFrom(&r.Meta)}
}

// link joins type definitions to their bodies, moves subtype conditions
// into the body's subtypes and canonicalises the scopes of links read
// before the scopes section.
func (a *Analyzer) link() {
	for _, l := range append(a.Links(), a.prefixLinks...) {
		for i, sp := range l.InputScopes {
			l.InputScopes[i] = a.canonicalScope(sp)
		}

		l.OutputScope = a.canonicalScope(l.OutputScope)
	}

	for k, def := range a.types {
		body, ok := a.rules[k]
		if !ok {
			continue
		}

		def.Body = body

		for _, blk := range blocks(body.Type) {
			blk.Name = def.Name

			for _, cond := range def.subtypes {
				s := blk.subtype(cond.Name)
				s.Conditions = cond.Conditions
				s.Options = cond.Options
				s.Inverted = cond.Inverted
			}

			// Declaration order in the types section decides narrowing order.
			slices.SortStableFunc(blk.Subtypes, func(x, y *Subtype) int {
				return subtypeIndex(def.subtypes, x.Name) - subtypeIndex(def.subtypes, y.Name)
			})
		}
	}
}

func (a *Analyzer) canonicalScope(sp interner.Spur) interner.Spur {
	if c, ok := a.scopeNames[sp]; ok {
		return c
	}

	return sp
}

func subtypeIndex(list []*Subtype, name string) int {
	i := slices.IndexFunc(list, func(s *Subtype) bool { return strings.EqualFold(s.Name, name) })
	if i < 0 {
		return len(list)
	}

	return i
}

// blocks returns the block members of t.
func blocks(t *Type) []*BlockType {
	switch t.Kind {
	case KindBlock:
		return []*BlockType{t.Block}
	case KindUnion:
		var out []*BlockType
		for _, m := range t.Members {
			out = append(out, blocks(m)...)
		}

		return out
	}

	return nil
}

func (a *Analyzer) errorf(kind ErrorKind, span cw.Span, format string, args ...any) {
	a.errors = append(a.errors, &ConversionError{Kind: kind, Detail: fmt.Sprintf(format, args...), Span: span})
}

// Errors returns the problems found while lowering, in the order found.
func (a *Analyzer) Errors() []*ConversionError { return slices.Clone(a.errors) }

// Type returns the type definition called name.
func (a *Analyzer) Type(name string) (*TypeDefinition, bool) {
	return lookup(a.types, name)
}

// Types returns every type definition, sorted by name.
func (a *Analyzer) Types() []*TypeDefinition {
	out := make([]*TypeDefinition, 0, len(a.types))
	for _, d := range a.types {
		out = append(out, d)
	}

	slices.SortFunc(out, func(x, y *TypeDefinition) int { return strings.Compare(x.Name, y.Name) })

	return out
}

// TypesForNamespace returns the types whose path is namespace.
func (a *Analyzer) TypesForNamespace(namespace string) []*TypeDefinition {
	var out []*TypeDefinition

	for _, d := range a.Types() {
		if d.MatchesNamespace(namespace) {
			out = append(out, d)
		}
	}

	return out
}

// Rule returns the top-level rule called name.
func (a *Analyzer) Rule(name string) (*Property, bool) { return lookup(a.rules, name) }

// Enum returns the simple enum called name.
func (a *Analyzer) Enum(name string) (*Enum, bool) { return lookup(a.enums, name) }

// ComplexEnum returns the complex enum called name.
func (a *Analyzer) ComplexEnum(name string) (*ComplexEnum, bool) {
	return lookup(a.complexEnums, name)
}

// ComplexEnums returns every complex enum, sorted by name.
func (a *Analyzer) ComplexEnums() []*ComplexEnum {
	out := make([]*ComplexEnum, 0, len(a.complexEnums))
	for _, e := range a.complexEnums {
		out = append(out, e)
	}

	slices.SortFunc(out, func(x, y *ComplexEnum) int { return strings.Compare(x.Name, y.Name) })

	return out
}

// ValueSet returns the static values declared for value[name].
func (a *Analyzer) ValueSet(name string) (*ValueSet, bool) { return lookup(a.valueSets, name) }

// Aliases returns the aliases of a category. Categories compare
// case-insensitively.
func (a *Analyzer) Aliases(category string) []*Alias {
	k, ok := interner.Get(category)
	if !ok {
		return nil
	}

	return a.aliases[k]
}

// SingleAlias returns the right-hand side of single_alias_right[name].
func (a *Analyzer) SingleAlias(name string) (*Type, bool) {
	return lookup(a.singleAliases, name)
}

// Scopes returns the declared scopes in declaration order.
func (a *Analyzer) Scopes() []*Scope { return slices.Clone(a.scopes) }

// ResolveScopeName maps a scope name or alias to its canonical id. any,
// all and unknown always resolve. Without a scopes section every name
// resolves to itself.
func (a *Analyzer) ResolveScopeName(name string) (interner.Spur, bool) {
	switch strings.ToLower(name) {
	case "any", "all", "unknown", "no_scope":
		return interner.Intern(strings.ToLower(name)), true
	}

	k := interner.Intern(name)

	if len(a.scopes) == 0 {
		return k, true
	}

	id, ok := a.scopeNames[k]

	return id, ok
}

// ScopeName returns the display name of a canonical scope id.
func (a *Analyzer) ScopeName(id interner.Spur) string {
	for _, s := range a.scopes {
		if s.ID == id {
			return s.Name
		}
	}

	return interner.Resolve(id)
}

// ScopeGroup returns the scopes of scope_group[name].
func (a *Analyzer) ScopeGroup(name string) ([]interner.Spur, bool) {
	return lookup(a.scopeGroups, name)
}

// Link returns the link called name. Prefixed links such as
// `event_target:` match any name starting with their prefix.
func (a *Analyzer) Link(name string) (*Link, bool) {
	if l, ok := lookup(a.links, name); ok {
		return l, true
	}

	for _, l := range a.prefixLinks {
		if hasFoldPrefix(name, l.Prefix) {
			return l, true
		}
	}

	return nil, false
}

// Links returns every link, sorted by name.
func (a *Analyzer) Links() []*Link {
	out := make([]*Link, 0, len(a.links))
	for _, l := range a.links {
		out = append(out, l)
	}

	slices.SortFunc(out, func(x, y *Link) int { return strings.Compare(x.Name, y.Name) })

	return out
}

// LinksFrom returns the links usable from scope, sorted by name. The
// unknown scope accepts every link.
func (a *Analyzer) LinksFrom(scope interner.Spur) []*Link {
	wildcard := scope == interner.Intern("unknown")

	var out []*Link

	for _, l := range a.Links() {
		if wildcard || l.AcceptsInput(scope) {
			out = append(out, l)
		}
	}

	return out
}

// Stats counts the entries of each table.
type Stats struct {
	Types         int
	Rules         int
	Enums         int
	ComplexEnums  int
	ValueSets     int
	Aliases       int
	SingleAliases int
	Scopes        int
	Links         int
	Errors        int
}

// Stats returns the table sizes.
func (a *Analyzer) Stats() Stats {
	aliases := 0
	for _, list := range a.aliases {
		aliases += len(list)
	}

	return Stats{
		Types:         len(a.types),
		Rules:         len(a.rules),
		Enums:         len(a.enums),
		ComplexEnums:  len(a.complexEnums),
		ValueSets:     len(a.valueSets),
		Aliases:       aliases,
		SingleAliases: len(a.singleAliases),
		Scopes:        len(a.scopes),
		Links:         len(a.links) + len(a.prefixLinks),
		Errors:        len(a.errors),
	}
}

func lookup[V any](m map[interner.Spur]V, name string) (V, bool) {
	var zero V

	k, ok := interner.Get(name)
	if !ok {
		return zero, false
	}

	v, ok := m[k]

	return v, ok
}

func singleAliasName(text string) (string, bool) {
	rest, ok := strings.CutPrefix(text, "single_alias[")
	if !ok || !strings.HasSuffix(rest, "]") {
		return "", false
	}

	return strings.TrimSuffix(rest, "]"), true
}

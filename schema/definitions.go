package schema

import (
	"path"
	"slices"
	"strings"

	"github.com/rlch/cw"
	"github.com/rlch/cw/interner"
)

// TypeDefinition is a `type[name] = { ... }` entry of the types section.
type TypeDefinition struct {
	Name string

	// Paths are the directories holding the type's entities, relative to
	// the game root: common/buildings for "game/common/buildings".
	Paths         []string
	PathStrict    bool
	PathFile      string
	PathExtension string

	// NameField names entities by the value of that field instead of by key.
	NameField   string
	SkipRootKey *SkipRootKey
	TypePerFile bool
	Unique      bool
	StartsWith  string

	Options Options

	// Body is the top-level rule of the same name, nil when the schema
	// defines the type without one.
	Body *Property

	Localisation []*LocalisationSpec
	Modifiers    []*ModifierSpec

	// subtypes holds the conditions declared in the types section until
	// they are joined to the body.
	subtypes []*Subtype

	Span cw.Span
}

// MatchesPath reports whether a file at rel (slash separated, relative to
// the game root) belongs to the type.
func (d *TypeDefinition) MatchesPath(rel string) bool {
	dir, file := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")

	if d.PathFile != "" && !strings.EqualFold(file, d.PathFile) {
		return false
	}

	if d.PathExtension != "" && !strings.HasSuffix(strings.ToLower(file), strings.ToLower(d.PathExtension)) {
		return false
	}

	for _, p := range d.Paths {
		switch {
		case strings.EqualFold(dir, p):
			return true
		case !d.PathStrict && hasPathPrefix(dir, p):
			return true
		}
	}

	return false
}

// MatchesNamespace reports whether namespace is one of the type's paths.
func (d *TypeDefinition) MatchesNamespace(namespace string) bool {
	return slices.ContainsFunc(d.Paths, func(p string) bool { return strings.EqualFold(p, namespace) })
}

// AcceptsKey applies starts_with and type_key_filter to an entity key.
func (d *TypeDefinition) AcceptsKey(key string) bool {
	if d.StartsWith != "" && !hasFoldPrefix(key, d.StartsWith) {
		return false
	}

	if filter := d.Options.TypeKeyFilter; len(filter) > 0 {
		listed := slices.ContainsFunc(filter, func(f string) bool { return strings.EqualFold(f, key) })
		if listed == d.Options.TypeKeyNegated {
			return false
		}
	}

	return true
}

// Block returns the body's block type, or nil.
func (d *TypeDefinition) Block() *BlockType {
	if d.Body == nil || !d.Body.Type.IsBlock() {
		return nil
	}

	return d.Body.Type.Block
}

func hasPathPrefix(dir, prefix string) bool {
	return len(dir) > len(prefix) && dir[len(prefix)] == '/' && strings.EqualFold(dir[:len(prefix)], prefix)
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// SkipKind selects how SkipRootKey descends.
type SkipKind int

// Skip kinds.
const (
	// SkipSpecific descends through one named key.
	SkipSpecific SkipKind = iota
	// SkipAny descends through whichever key is present.
	SkipAny
	// SkipExcept descends through every key except those listed.
	SkipExcept
	// SkipMultiple descends through any of the listed keys, level after
	// level.
	SkipMultiple
)

// SkipRootKey says the type's entities sit below a wrapper key.
type SkipRootKey struct {
	Kind SkipKind
	Keys []string
}

// Skips reports whether the wrapper key should be descended through.
func (s *SkipRootKey) Skips(key string) bool {
	listed := slices.ContainsFunc(s.Keys, func(k string) bool { return strings.EqualFold(k, key) })

	switch s.Kind {
	case SkipAny:
		return true
	case SkipExcept:
		return !listed
	default:
		return listed
	}
}

// Enum is a fixed list of words.
type Enum struct {
	Name   string
	Values []string
	Set    interner.Set
	Span   cw.Span
}

// ComplexEnum is an enum mined from game files.
type ComplexEnum struct {
	Name  string
	Paths []string

	// StartFromRoot matches Name against the whole file instead of each
	// top-level entity.
	StartFromRoot bool

	// Name is the shape to walk. The word enum_name marks where values are
	// taken from: as a key, as a value, or as a bare item.
	Structure *Type

	Span cw.Span
}

// EnumNameMarker is the placeholder word in a complex enum structure.
const EnumNameMarker = "enum_name"

// ValueSet is a `value[key] = { ... }` entry of the values section.
type ValueSet struct {
	Name   string
	Values []string
	Span   cw.Span
}

// AliasNameKind selects how an alias's name matches keys.
type AliasNameKind int

// Alias name kinds.
const (
	AliasStatic AliasNameKind = iota
	AliasTypeRef
	AliasTypeRefWithAffix
	AliasEnum
)

// AliasName is the name half of alias[category:name].
type AliasName struct {
	Kind   AliasNameKind
	Name   string
	Prefix string
	Suffix string
}

func (n AliasName) String() string {
	switch n.Kind {
	case AliasTypeRef:
		return "<" + n.Name + ">"
	case AliasTypeRefWithAffix:
		return n.Prefix + "<" + n.Name + ">" + n.Suffix
	case AliasEnum:
		return "enum[" + n.Name + "]"
	}

	return n.Name
}

// Alias is one `alias[category:name] = T` definition. Repeated definitions
// of the same pattern are unioned into Type.
type Alias struct {
	Category string
	Name     AliasName
	Type     *Type
	Options  Options
	Span     cw.Span
}

// Scope is an entry of the scopes section.
type Scope struct {
	Name    string
	Aliases []string

	// ID is the canonical interned name used on the scope stack.
	ID interner.Spur
}

// Link is an entry of the links section: a named step from one scope to
// another.
type Link struct {
	Name string
	Desc string

	// InputScopes lists the scopes the link may be used from; empty means
	// any.
	InputScopes []interner.Spur
	OutputScope interner.Spur

	FromData    bool
	Type        string
	DataSources []string
	Prefix      string

	Span cw.Span
}

// AcceptsInput reports whether the link may be used from scope.
func (l *Link) AcceptsInput(scope interner.Spur) bool {
	if len(l.InputScopes) == 0 {
		return true
	}

	return slices.Contains(l.InputScopes, scope) || slices.Contains(l.InputScopes, anyScope())
}

func anyScope() interner.Spur { return interner.Intern("any") }

// Package schema lowers parsed CWT files into a type graph.
//
// Types refer to other schema tables by name (Reference), never by pointer,
// so alias_name and single_alias recursion is resolved lazily by the
// resolver against the Analyzer's tables.
package schema

import (
	"slices"
	"strconv"
	"strings"

	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/interner"
)

// TypeKind is the category of a type.
type TypeKind string

// Type kind constants.
const (
	KindUnknown    TypeKind = "unknown"
	KindAny        TypeKind = "any"
	KindSimple     TypeKind = "simple"      // bool, int[0..10], localisation, ...
	KindLiteral    TypeKind = "literal"     // a fixed word such as yes or enum_name
	KindLiteralSet TypeKind = "literal_set" // one of several words
	KindReference  TypeKind = "reference"   // <type>, enum[x], alias_name[x], ...
	KindBlock      TypeKind = "block"       // { ... }
	KindArray      TypeKind = "array"       // { elem elem ... }
	KindUnion      TypeKind = "union"
	KindComparable TypeKind = "comparable" // written with ==
)

// Type is a node of the type graph.
type Type struct {
	Kind TypeKind

	// Simple is the primitive for KindSimple; Range bounds it when set.
	Simple cwt.Kind
	Range  *cwt.Range

	// Literal is the word of KindLiteral.
	Literal string

	// Literals are the words of KindLiteralSet, in declaration order, and
	// Set their interned form.
	Literals []string
	Set      interner.Set

	Ref   *Reference
	Block *BlockType

	// Elem is the element of KindArray and the operand of KindComparable.
	Elem *Type

	// Members are the alternatives of KindUnion.
	Members []*Type
}

// Shared leaf types.
var (
	Unknown = &Type{Kind: KindUnknown}
	Any     = &Type{Kind: KindAny}
)

// SimpleOf returns a primitive type.
func SimpleOf(k cwt.Kind, r *cwt.Range) *Type {
	return &Type{Kind: KindSimple, Simple: k, Range: r}
}

// LiteralOf returns a single-word type.
func LiteralOf(word string) *Type {
	return &Type{Kind: KindLiteral, Literal: word}
}

// LiteralSetOf returns a type accepting any of words.
func LiteralSetOf(words []string) *Type {
	return &Type{Kind: KindLiteralSet, Literals: words, Set: interner.SetOf(words...)}
}

// RefOf returns a reference type.
func RefOf(kind RefKind, key string) *Type {
	return &Type{Kind: KindReference, Ref: &Reference{Kind: kind, Key: key}}
}

// ArrayOf returns a list type.
func ArrayOf(elem *Type) *Type { return &Type{Kind: KindArray, Elem: elem} }

// ComparableOf wraps t for rules written with ==.
func ComparableOf(t *Type) *Type { return &Type{Kind: KindComparable, Elem: t} }

// UnionOf combines types. Nested unions are flattened, Unknown members are
// dropped and a single remaining member is returned as is.
func UnionOf(types ...*Type) *Type {
	var members []*Type

	for _, t := range types {
		switch {
		case t == nil || t.Kind == KindUnknown:
		case t.Kind == KindUnion:
			members = append(members, t.Members...)
		default:
			members = append(members, t)
		}
	}

	switch len(members) {
	case 0:
		return Unknown
	case 1:
		return members[0]
	}

	return &Type{Kind: KindUnion, Members: members}
}

// Unwrap strips a Comparable wrapper.
func (t *Type) Unwrap() *Type {
	if t != nil && t.Kind == KindComparable {
		return t.Elem
	}

	return t
}

// IsBlock reports whether t is a block.
func (t *Type) IsBlock() bool { return t != nil && t.Kind == KindBlock }

// String renders the type the way it is written in a schema.
func (t *Type) String() string {
	if t == nil {
		return string(KindUnknown)
	}

	switch t.Kind {
	case KindSimple:
		s := t.Simple.String()
		if t.Range != nil {
			s += "[" + formatBound(t.Range.Min) + ".." + formatBound(t.Range.Max) + "]"
		}

		return s
	case KindLiteral:
		return t.Literal
	case KindLiteralSet:
		return strings.Join(t.Literals, " | ")
	case KindReference:
		return t.Ref.String()
	case KindBlock:
		if t.Block.Name != "" {
			return t.Block.Name
		}

		return "{ ... }"
	case KindArray:
		return "{ " + t.Elem.String() + " ... }"
	case KindUnion:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = m.String()
		}

		return strings.Join(parts, " | ")
	case KindComparable:
		return "== " + t.Elem.String()
	default:
		return string(t.Kind)
	}
}

func formatBound(f float64) string {
	switch {
	case f > 1e300:
		return "inf"
	case f < -1e300:
		return "-inf"
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RefKind names the table a reference points into.
type RefKind int

// Reference kinds.
const (
	RefType           RefKind = iota // <key>
	RefTypeWithAffix                 // prefix<key>suffix
	RefEnum                          // enum[key]
	RefComplexEnum                   // complex_enum[key]
	RefScope                         // scope[key]
	RefScopeGroup                    // scope_group[key]
	RefAlias                         // alias[category]
	RefAliasName                     // alias_name[category]
	RefAliasMatchLeft                // alias_match_left[category]
	RefSingleAlias                   // single_alias_right[key]
	RefAliasKeysField                // alias_keys_field[category]
	RefValue                         // value[key]
	RefValueSet                      // value_set[key]
	RefIcon                          // icon[path]
	RefFilepath                      // filepath[path]
	RefColour                        // colour[format]
	RefSubtype                       // subtype[name]
	RefStellarisNameFormat           // stellaris_name_format[key]
	RefInlineScript                  // inline_script
)

var refPrefixes = map[RefKind]string{
	RefEnum:                "enum",
	RefComplexEnum:         "complex_enum",
	RefScope:               "scope",
	RefScopeGroup:          "scope_group",
	RefAlias:               "alias",
	RefAliasName:           "alias_name",
	RefAliasMatchLeft:      "alias_match_left",
	RefSingleAlias:         "single_alias_right",
	RefAliasKeysField:      "alias_keys_field",
	RefValue:               "value",
	RefValueSet:            "value_set",
	RefIcon:                "icon",
	RefFilepath:            "filepath",
	RefColour:              "colour",
	RefSubtype:             "subtype",
	RefStellarisNameFormat: "stellaris_name_format",
}

// Reference points at a named entry of another table.
type Reference struct {
	Kind RefKind
	Key  string

	// Prefix and Suffix are set for RefTypeWithAffix.
	Prefix string
	Suffix string
}

func (r *Reference) String() string {
	switch r.Kind {
	case RefType:
		return "<" + r.Key + ">"
	case RefTypeWithAffix:
		return r.Prefix + "<" + r.Key + ">" + r.Suffix
	case RefInlineScript:
		return "inline_script"
	}

	return refPrefixes[r.Kind] + "[" + r.Key + "]"
}

// refKinds maps identifier kinds to reference kinds.
var refKinds = map[cwt.Kind]RefKind{
	cwt.KindEnum:                RefEnum,
	cwt.KindComplexEnum:         RefComplexEnum,
	cwt.KindScope:               RefScope,
	cwt.KindScopeGroup:          RefScopeGroup,
	cwt.KindAlias:               RefAlias,
	cwt.KindAliasName:           RefAliasName,
	cwt.KindAliasMatchLeft:      RefAliasMatchLeft,
	cwt.KindSingleAlias:         RefSingleAlias,
	cwt.KindAliasKeysField:      RefAliasKeysField,
	cwt.KindValue:               RefValue,
	cwt.KindValueSet:            RefValueSet,
	cwt.KindIcon:                RefIcon,
	cwt.KindFilepath:            RefFilepath,
	cwt.KindColour:              RefColour,
	cwt.KindSubtype:             RefSubtype,
	cwt.KindStellarisNameFormat: RefStellarisNameFormat,
	cwt.KindType:                RefType,
}

// BlockType is the shape of a `{ ... }` value.
type BlockType struct {
	// Name is the type the block defines, when it is a type's body.
	Name string

	Properties map[interner.Spur]*Property
	Patterns   []*PatternProperty
	Subtypes   []*Subtype

	// Flags are the types of the bare items the block accepts.
	Flags []*Type

	Localisation []*LocalisationSpec
	Modifiers    []*ModifierSpec

	order []interner.Spur
}

// NewBlockType returns an empty block.
func NewBlockType() *BlockType {
	return &BlockType{Properties: make(map[interner.Spur]*Property)}
}

// Property returns the named property key.
func (b *BlockType) Property(key string) (*Property, bool) {
	k, ok := interner.Get(key)
	if !ok {
		return nil, false
	}

	p, ok := b.Properties[k]

	return p, ok
}

// PropertyList returns the named properties in declaration order.
func (b *BlockType) PropertyList() []*Property {
	out := make([]*Property, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, b.Properties[k])
	}

	return out
}

// Subtype returns the subtype called name.
func (b *BlockType) Subtype(name string) (*Subtype, bool) {
	i := slices.IndexFunc(b.Subtypes, func(s *Subtype) bool { return strings.EqualFold(s.Name, name) })
	if i < 0 {
		return nil, false
	}

	return b.Subtypes[i], true
}

// addProperty records p, unioning the type of a repeated key.
func (b *BlockType) addProperty(p *Property) {
	k := interner.Intern(p.Key)

	if existing, ok := b.Properties[k]; ok {
		existing.Type = UnionOf(existing.Type, p.Type)

		return
	}

	b.Properties[k] = p
	b.order = append(b.order, k)
}

// subtype returns the subtype called name, creating it when absent.
func (b *BlockType) subtype(name string) *Subtype {
	if s, ok := b.Subtype(name); ok {
		return s
	}

	s := &Subtype{Name: name, Block: NewBlockType()}
	b.Subtypes = append(b.Subtypes, s)

	return s
}

// Property is a named key of a block.
type Property struct {
	Key     string
	Type    *Type
	Options Options
}

// PatternProperty matches keys by type rather than by name: enum[x],
// <type>, alias_name[x], scalar, ...
type PatternProperty struct {
	Key     *Type
	Value   *Type
	Options Options
}

// Subtype specialises a block. Conditions come from the type definition,
// properties from the body.
type Subtype struct {
	Name string

	// Inverted subtypes apply when their conditions do not hold.
	Inverted   bool
	Conditions []Condition
	Options    Options

	// Block holds the properties and patterns the subtype adds.
	Block *BlockType
}

// ConditionKind enumerates subtype conditions.
type ConditionKind int

// Condition kinds.
const (
	CondEquals ConditionKind = iota
	CondNotEquals
	CondExists
	CondNotExists
	CondKeyStartsWith
	CondKeyMatches
	CondExpression
)

// Condition decides whether an entity belongs to a subtype.
type Condition struct {
	Kind ConditionKind

	// Key is the property tested; Value the word it must (not) equal.
	Key   string
	Value string

	// Keys holds a type_key_filter list for CondKeyMatches, Negated inverting
	// it.
	Keys    []string
	Negated bool
}

// LocalisationSpec is a localisation key a type requires, such as
// `name = "$"`.
type LocalisationSpec struct {
	Key      string
	Pattern  string
	Required bool
	Primary  bool
	Subtype  string
}

// ModifierSpec is a modifier a type generates, such as `$_mult = planet`.
type ModifierSpec struct {
	Pattern  string
	Category string
	Subtype  string
}

package cwt

import (
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/cw"
)

// Kind classifies an identifier written in a schema.
type Kind int

// Identifier kinds. Plain identifiers are literal keys or values; simple
// kinds name primitive value types; the rest are references resolved against
// other schema tables or game data.
const (
	KindPlain Kind = iota

	KindBool
	KindInt
	KindFloat
	KindScalar
	KindPercentageField
	KindLocalisation
	KindLocalisationSynced
	KindLocalisationInline
	KindDateField
	KindVariableField
	KindIntVariableField
	KindValueField
	KindIntValueField
	KindScopeField
	KindFilepathField
	KindIconField

	KindTypeRef
	KindEnum
	KindComplexEnum
	KindScope
	KindScopeGroup
	KindAlias
	KindAliasName
	KindAliasMatchLeft
	KindAliasKeysField
	KindSingleAlias
	KindValue
	KindValueSet
	KindIcon
	KindFilepath
	KindColour
	KindStellarisNameFormat
	KindType
	KindSubtype
)

var kindNames = map[Kind]string{
	KindPlain:               "plain",
	KindBool:                "bool",
	KindInt:                 "int",
	KindFloat:               "float",
	KindScalar:              "scalar",
	KindPercentageField:     "percentage_field",
	KindLocalisation:        "localisation",
	KindLocalisationSynced:  "localisation_synced",
	KindLocalisationInline:  "localisation_inline",
	KindDateField:           "date_field",
	KindVariableField:       "variable_field",
	KindIntVariableField:    "int_variable_field",
	KindValueField:          "value_field",
	KindIntValueField:       "int_value_field",
	KindScopeField:          "scope_field",
	KindFilepathField:       "filepath",
	KindIconField:           "icon",
	KindTypeRef:             "<type>",
	KindEnum:                "enum",
	KindComplexEnum:         "complex_enum",
	KindScope:               "scope",
	KindScopeGroup:          "scope_group",
	KindAlias:               "alias",
	KindAliasName:           "alias_name",
	KindAliasMatchLeft:      "alias_match_left",
	KindAliasKeysField:      "alias_keys_field",
	KindSingleAlias:         "single_alias_right",
	KindValue:               "value",
	KindValueSet:            "value_set",
	KindIcon:                "icon[]",
	KindFilepath:            "filepath[]",
	KindColour:              "colour",
	KindStellarisNameFormat: "stellaris_name_format",
	KindType:                "type",
	KindSubtype:             "subtype",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsSimple reports whether k names a primitive value type.
func (k Kind) IsSimple() bool { return k >= KindBool && k <= KindIconField }

// IsReference reports whether k refers to another schema table.
func (k Kind) IsReference() bool { return k >= KindTypeRef }

// bracketKinds maps `name[...]` prefixes to their kind.
var bracketKinds = map[string]Kind{
	"enum":                  KindEnum,
	"complex_enum":          KindComplexEnum,
	"scope":                 KindScope,
	"scope_group":           KindScopeGroup,
	"alias":                 KindAlias,
	"alias_name":            KindAliasName,
	"alias_match_left":      KindAliasMatchLeft,
	"alias_keys_field":      KindAliasKeysField,
	"single_alias_right":    KindSingleAlias,
	"value":                 KindValue,
	"value_set":             KindValueSet,
	"icon":                  KindIcon,
	"filepath":              KindFilepath,
	"colour":                KindColour,
	"stellaris_name_format": KindStellarisNameFormat,
	"type":                  KindType,
	"subtype":               KindSubtype,
}

// rangedKinds are simple kinds that accept an inline [min..max] range.
var rangedKinds = map[string]Kind{
	"int":                KindInt,
	"float":              KindFloat,
	"variable_field":     KindVariableField,
	"int_variable_field": KindIntVariableField,
	"value_field":        KindValueField,
	"int_value_field":    KindIntValueField,
}

var simpleKinds = map[string]Kind{
	"bool":                KindBool,
	"scalar":              KindScalar,
	"percentage_field":    KindPercentageField,
	"localisation":        KindLocalisation,
	"localisation_synced": KindLocalisationSynced,
	"localisation_inline": KindLocalisationInline,
	"date_field":          KindDateField,
	"scope_field":         KindScopeField,
	"filepath":            KindFilepathField,
	"icon":                KindIconField,
}

// Range is an inclusive numeric bound such as int[0..10] or float[-inf..1].
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Identifier is a key or scalar value in a schema.
type Identifier struct {
	// Text is the identifier as written, without quotes.
	Text string

	Kind Kind

	// Name is the argument of a typed identifier: weapon_type in
	// enum[weapon_type], ship_size in <ship_size>.
	Name string

	// Prefix and Suffix surround a type reference: pre_<type>_suf.
	Prefix string
	Suffix string

	// Range is set for ranged simple kinds such as int[0..10].
	Range *Range

	Negated bool
	Quoted  bool
	Pos     lexer.Position
	EndPos  lexer.Position
}

// Span returns the identifier's source range.
func (id *Identifier) Span() cw.Span { return cw.Span{Start: id.Pos, End: id.EndPos} }

// AliasParts splits the argument of alias[category:name] at the first colon.
func (id *Identifier) AliasParts() (category, name string, ok bool) {
	return strings.Cut(id.Name, ":")
}

// Classify parses the text of an identifier into its kind and arguments.
func Classify(text string) Identifier {
	id := Identifier{Text: text}

	body := text
	if strings.HasPrefix(body, "!") && len(body) > 1 {
		id.Negated = true
		body = body[1:]
	}

	// Bracket forms win over angle brackets so that alias[cat:<type>] keeps
	// its outer kind.
	if name, arg, ok := bracketArg(body); ok {
		if k, ok := bracketKinds[name]; ok {
			id.Kind = k
			id.Name = arg

			return id
		}

		if k, ok := rangedKinds[name]; ok {
			if r, ok := parseRange(arg); ok {
				id.Kind = k
				id.Range = &r

				return id
			}
		}
	}

	if open := strings.IndexByte(body, '<'); open >= 0 {
		if closeIdx := strings.IndexByte(body[open:], '>'); closeIdx > 1 {
			closeIdx += open
			id.Kind = KindTypeRef
			id.Name = body[open+1 : closeIdx]
			id.Prefix = body[:open]
			id.Suffix = body[closeIdx+1:]

			return id
		}
	}

	if k, ok := rangedKinds[body]; ok {
		id.Kind = k

		return id
	}

	if k, ok := simpleKinds[body]; ok {
		id.Kind = k
	}

	return id
}

// bracketArg splits `name[arg]`.
func bracketArg(s string) (name, arg string, ok bool) {
	open := strings.IndexByte(s, '[')
	if open <= 0 || !strings.HasSuffix(s, "]") {
		return "", "", false
	}

	return s[:open], s[open+1 : len(s)-1], true
}

func parseRange(s string) (Range, bool) {
	lo, hi, ok := strings.Cut(s, "...")
	if !ok {
		lo, hi, ok = strings.Cut(s, "..")
	}

	if !ok {
		return Range{}, false
	}

	minV, ok1 := parseBound(strings.TrimSpace(lo))
	maxV, ok2 := parseBound(strings.TrimSpace(hi))

	if !ok1 || !ok2 {
		return Range{}, false
	}

	return Range{Min: minV, Max: maxV}, true
}

func parseBound(s string) (float64, bool) {
	switch s {
	case "inf", "+inf":
		return math.Inf(1), true
	case "-inf":
		return math.Inf(-1), true
	}

	v, err := strconv.ParseFloat(s, 64)

	return v, err == nil
}

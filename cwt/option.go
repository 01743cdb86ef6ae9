package cwt

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ErrInvalidOption classifies `##` lines whose option syntax is malformed.
var ErrInvalidOption = errors.New("invalid rule option")

var optionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `"(\\"|[^"])*"`},
	{Name: "Range", Pattern: `~?\s*(-?\d+|inf)\s*\.\.\s*(-?\d+|inf)`},
	{Name: "Op", Pattern: `<>|!=|==|=`},
	{Name: "Punct", Pattern: `[{}]`},
	{Name: "Ident", Pattern: `[^\s{}="<>!~]+`},
})

var optionParser = participle.MustBuild[optionLine](
	participle.Lexer(optionLexer),
	participle.Unquote("String"),
	participle.Elide("Whitespace"),
)

type optionLine struct {
	Options []*optionAST `parser:"@@*"`
}

type optionAST struct {
	Key   string      `parser:"@(Ident | String)"`
	Op    string      `parser:"( @('=' | '==' | '<>' | '!=')"`
	Value *optionExpr `parser:"  @@ )?"`
}

type optionExpr struct {
	Range  *string      `parser:"  @Range"`
	String *string      `parser:"| @String"`
	Block  *optionBlock `parser:"| @@"`
	Ident  *string      `parser:"| @Ident"`
}

type optionBlock struct {
	Items []*optionAST `parser:"'{' @@* '}'"`
}

// OptionKind tells which form an option value takes.
type OptionKind int

const (
	OptionIdent OptionKind = iota
	OptionString
	OptionRange
	OptionBlock
)

// Option is one directive of a `##` line, such as `cardinality = 0..1`,
// `push_scope = country` or the flag `required`.
type Option struct {
	Key string

	// Negated is set for `key <> value` and `key != value`.
	Negated bool

	// Value is nil for flags.
	Value *OptionValue
}

// OptionValue is the right-hand side of an option.
type OptionValue struct {
	Kind OptionKind

	// Text holds identifiers, unquoted strings and the raw range text.
	Text  string
	Range *Cardinality
	Items []*Option
}

// Strings flattens the value into words: the text of a scalar, or the keys of
// a block's items.
func (v *OptionValue) Strings() []string {
	if v == nil {
		return nil
	}

	if v.Kind != OptionBlock {
		return []string{v.Text}
	}

	out := make([]string, 0, len(v.Items))
	for _, it := range v.Items {
		out = append(out, it.Key)
	}

	return out
}

// Cardinality bounds how many times a rule may occur.
type Cardinality struct {
	Min int
	// Max is math.MaxInt for `inf`.
	Max int
	// Lenient cardinalities (`~1..2`) are reported as warnings.
	Lenient bool
}

// DefaultCardinality applies to rules without a cardinality option.
var DefaultCardinality = Cardinality{Min: 1, Max: 1}

// Unbounded reports whether the upper bound is infinite.
func (c Cardinality) Unbounded() bool { return c.Max == math.MaxInt }

// Allows reports whether n occurrences satisfy the bounds.
func (c Cardinality) Allows(n int) bool { return n >= c.Min && n <= c.Max }

// Optional reports whether the rule may be left out.
func (c Cardinality) Optional() bool { return c.Min == 0 }

func (c Cardinality) String() string {
	hi := "inf"
	if !c.Unbounded() {
		hi = strconv.Itoa(c.Max)
	}

	prefix := ""
	if c.Lenient {
		prefix = "~"
	}

	return fmt.Sprintf("%s%d..%s", prefix, c.Min, hi)
}

// ParseCardinality parses `min..max` with an optional leading `~`.
func ParseCardinality(s string) (Cardinality, error) {
	var c Cardinality

	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "~"); ok {
		c.Lenient = true
		s = strings.TrimSpace(rest)
	}

	lo, hi, ok := strings.Cut(s, "..")
	if !ok {
		return c, fmt.Errorf("%w: cardinality %q has no range", ErrInvalidOption, s)
	}

	minV, err := parseCardinalityBound(strings.TrimSpace(lo))
	if err != nil {
		return c, err
	}

	maxV, err := parseCardinalityBound(strings.TrimSpace(hi))
	if err != nil {
		return c, err
	}

	if minV == math.MaxInt || minV > maxV {
		return c, fmt.Errorf("%w: cardinality %q is empty", ErrInvalidOption, s)
	}

	c.Min, c.Max = minV, maxV

	return c, nil
}

func parseCardinalityBound(s string) (int, error) {
	if s == "inf" {
		return math.MaxInt, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: cardinality bound %q", ErrInvalidOption, s)
	}

	return n, nil
}

// ParseOptions parses the text of a `##` line, without the leading hashes.
func ParseOptions(text string) ([]*Option, error) {
	line, err := optionParser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	return convertOptions(line.Options)
}

func convertOptions(in []*optionAST) ([]*Option, error) {
	out := make([]*Option, 0, len(in))

	for _, o := range in {
		opt := &Option{
			Key:     o.Key,
			Negated: o.Op == "<>" || o.Op == "!=",
		}

		if o.Value != nil {
			v, err := convertOptionValue(o.Value)
			if err != nil {
				return nil, err
			}

			opt.Value = v
		}

		out = append(out, opt)
	}

	return out, nil
}

func convertOptionValue(e *optionExpr) (*OptionValue, error) {
	switch {
	case e.Range != nil:
		c, err := ParseCardinality(*e.Range)
		if err != nil {
			return nil, err
		}

		return &OptionValue{Kind: OptionRange, Text: *e.Range, Range: &c}, nil
	case e.String != nil:
		return &OptionValue{Kind: OptionString, Text: *e.String}, nil
	case e.Block != nil:
		items, err := convertOptions(e.Block.Items)
		if err != nil {
			return nil, err
		}

		return &OptionValue{Kind: OptionBlock, Items: items}, nil
	case e.Ident != nil:
		return &OptionValue{Kind: OptionIdent, Text: *e.Ident}, nil
	}

	return nil, fmt.Errorf("%w: empty value", ErrInvalidOption)
}

// Cardinality returns the rule's cardinality, or DefaultCardinality.
func (m *Meta) Cardinality() Cardinality {
	if o, ok := m.Option("cardinality"); ok && o.Value != nil && o.Value.Range != nil {
		return *o.Value.Range
	}

	return DefaultCardinality
}

// PushScope returns the scope named by push_scope.
func (m *Meta) PushScope() (string, bool) {
	return m.scalarOption("push_scope")
}

// ReplaceScope returns the frame rebinding of `replace_scope = { this = x }`
// in declaration order.
func (m *Meta) ReplaceScope() []ScopeBinding {
	o, ok := m.Option("replace_scope")
	if !ok || o.Value == nil || o.Value.Kind != OptionBlock {
		return nil
	}

	out := make([]ScopeBinding, 0, len(o.Value.Items))
	for _, it := range o.Value.Items {
		if it.Value == nil {
			continue
		}

		out = append(out, ScopeBinding{Frame: it.Key, Scope: it.Value.Text})
	}

	return out
}

// ScopeBinding rebinds the named frame to a scope type.
type ScopeBinding struct {
	Frame string
	Scope string
}

// Scopes returns the scopes a rule is restricted to by `scope = x` or
// `scope = { x y }`.
func (m *Meta) Scopes() []string {
	o, ok := m.Option("scope")
	if !ok {
		return nil
	}

	return o.Value.Strings()
}

// Severity returns the severity override, such as warning or information.
func (m *Meta) Severity() (string, bool) {
	return m.scalarOption("severity")
}

// StartsWith returns the required key prefix of a type.
func (m *Meta) StartsWith() (string, bool) {
	return m.scalarOption("starts_with")
}

// TypeKeyFilter returns the keys a type is restricted to; negated filters
// exclude them instead.
func (m *Meta) TypeKeyFilter() (keys []string, negated, ok bool) {
	o, ok := m.Option("type_key_filter")
	if !ok || o.Value == nil {
		return nil, false, false
	}

	return o.Value.Strings(), o.Negated, true
}

// GraphRelatedTypes lists the types named by graph_related_types.
func (m *Meta) GraphRelatedTypes() []string {
	o, ok := m.Option("graph_related_types")
	if !ok {
		return nil
	}

	return o.Value.Strings()
}

// Required reports the `required` flag.
func (m *Meta) Required() bool { return m.HasFlag("required") }

// Primary reports the `primary` flag.
func (m *Meta) Primary() bool { return m.HasFlag("primary") }

// DisplayName returns the display_name option.
func (m *Meta) DisplayName() (string, bool) {
	return m.scalarOption("display_name")
}

// Abbreviation returns the abbreviation option.
func (m *Meta) Abbreviation() (string, bool) {
	return m.scalarOption("abbreviation")
}

func (m *Meta) scalarOption(key string) (string, bool) {
	o, ok := m.Option(key)
	if !ok || o.Value == nil || o.Value.Kind == OptionBlock {
		return "", false
	}

	return o.Value.Text, true
}

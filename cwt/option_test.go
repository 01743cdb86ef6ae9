package cwt_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/cw/cwt"
)

func TestParseOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []*cwt.Option
	}{
		{
			name:  "flag",
			input: " required",
			expected: []*cwt.Option{
				{Key: "required"},
			},
		},
		{
			name:  "identifier",
			input: " push_scope = country",
			expected: []*cwt.Option{
				{Key: "push_scope", Value: &cwt.OptionValue{Kind: cwt.OptionIdent, Text: "country"}},
			},
		},
		{
			name:  "string",
			input: ` display_name = "With Spaces"`,
			expected: []*cwt.Option{
				{Key: "display_name", Value: &cwt.OptionValue{Kind: cwt.OptionString, Text: "With Spaces"}},
			},
		},
		{
			name:  "negated block",
			input: " type_key_filter <> { one two }",
			expected: []*cwt.Option{
				{Key: "type_key_filter", Negated: true, Value: &cwt.OptionValue{
					Kind: cwt.OptionBlock,
					Items: []*cwt.Option{
						{Key: "one"},
						{Key: "two"},
					},
				}},
			},
		},
		{
			name:  "assignments in block",
			input: " replace_scope = { this = planet root = ship }",
			expected: []*cwt.Option{
				{Key: "replace_scope", Value: &cwt.OptionValue{
					Kind: cwt.OptionBlock,
					Items: []*cwt.Option{
						{Key: "this", Value: &cwt.OptionValue{Kind: cwt.OptionIdent, Text: "planet"}},
						{Key: "root", Value: &cwt.OptionValue{Kind: cwt.OptionIdent, Text: "ship"}},
					},
				}},
			},
		},
		{
			name:  "several on one line",
			input: " cardinality = 0..1 push_scope = planet",
			expected: []*cwt.Option{
				{Key: "cardinality", Value: &cwt.OptionValue{
					Kind: cwt.OptionRange, Text: "0..1", Range: &cwt.Cardinality{Min: 0, Max: 1},
				}},
				{Key: "push_scope", Value: &cwt.OptionValue{Kind: cwt.OptionIdent, Text: "planet"}},
			},
		},
		{
			name:  "empty block",
			input: "scope = {}",
			expected: []*cwt.Option{
				{Key: "scope", Value: &cwt.OptionValue{Kind: cwt.OptionBlock, Items: []*cwt.Option{}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := cwt.ParseOptions(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseOptions_Invalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"cardinality = 2..1", "scope = { a", "= x"} {
		_, err := cwt.ParseOptions(input)
		assert.ErrorIs(t, err, cwt.ErrInvalidOption, input)
	}
}

func TestParseCardinality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected cwt.Cardinality
	}{
		{"0..1", cwt.Cardinality{Min: 0, Max: 1}},
		{"1..inf", cwt.Cardinality{Min: 1, Max: math.MaxInt}},
		{"~1..2", cwt.Cardinality{Min: 1, Max: 2, Lenient: true}},
		{"~ 0 .. 3", cwt.Cardinality{Min: 0, Max: 3, Lenient: true}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := cwt.ParseCardinality(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	c, _ := cwt.ParseCardinality("1..inf")
	assert.True(t, c.Unbounded())
	assert.True(t, c.Allows(100))
	assert.False(t, c.Allows(0))
	assert.Equal(t, "1..inf", c.String())

	_, err := cwt.ParseCardinality("a..b")
	assert.ErrorIs(t, err, cwt.ErrInvalidOption)
}

func TestMeta_Accessors(t *testing.T) {
	t.Parallel()

	src := `## cardinality = ~0..inf
## push_scope = country
## replace_scope = { this = planet root = country }
## scope = { country planet }
## severity = warning
## starts_with = b_
## type_key_filter <> { a b }
## graph_related_types = { special_project anomaly_category }
## display_name = "Fancy"
## abbreviation = ST
## required
## primary
### Some documentation.
### Second line.
rule = int
plain = bool
`

	f, err := cwt.ParseString("t.cwt", src)
	require.NoError(t, err)
	require.Len(t, f.Items, 2)

	m := f.Items[0].Metadata()
	assert.Equal(t, cwt.Cardinality{Min: 0, Max: math.MaxInt, Lenient: true}, m.Cardinality())

	push, ok := m.PushScope()
	assert.True(t, ok)
	assert.Equal(t, "country", push)

	assert.Equal(t, []cwt.ScopeBinding{
		{Frame: "this", Scope: "planet"},
		{Frame: "root", Scope: "country"},
	}, m.ReplaceScope())
	assert.Equal(t, []string{"country", "planet"}, m.Scopes())

	sev, _ := m.Severity()
	assert.Equal(t, "warning", sev)

	prefix, _ := m.StartsWith()
	assert.Equal(t, "b_", prefix)

	keys, negated, ok := m.TypeKeyFilter()
	assert.True(t, ok)
	assert.True(t, negated)
	assert.Equal(t, []string{"a", "b"}, keys)

	assert.Equal(t, []string{"special_project", "anomaly_category"}, m.GraphRelatedTypes())

	name, _ := m.DisplayName()
	assert.Equal(t, "Fancy", name)

	abbr, _ := m.Abbreviation()
	assert.Equal(t, "ST", abbr)
	assert.True(t, m.Required())
	assert.True(t, m.Primary())
	assert.Equal(t, "Some documentation.\nSecond line.", m.Documentation())

	plain := f.Items[1].Metadata()
	assert.Equal(t, cwt.DefaultCardinality, plain.Cardinality())
	assert.Empty(t, plain.Options)
	assert.False(t, plain.Required())
}

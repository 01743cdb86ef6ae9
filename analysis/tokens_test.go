package analysis_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/cw/analysis"
)

type tok struct {
	Text string
	Kind string
}

func TestTokens(t *testing.T) {
	t.Parallel()

	src := `@x = 1 # note
b = {
	hidden = yes
	name = "b_name"
	color = rgb { 10 20 30 }
	[[BIG] cost = @[ x * 2 ] ]
}
`
	f := analyze(t, "common/misc/m.txt", src)
	require.NoError(t, f.ParseError)

	var got []tok
	for _, tk := range analysis.Tokens(f) {
		got = append(got, tok{src[tk.Start:tk.End], tk.Kind.String()})
	}

	want := []tok{
		{"@x", "variable"},
		{"=", "operator"},
		{"1", "number"},
		{"# note", "comment"},
		{"b", "property"},
		{"=", "operator"},
		{"hidden", "property"},
		{"=", "operator"},
		{"yes", "keyword"},
		{"name", "property"},
		{"=", "operator"},
		{`"b_name"`, "string"},
		{"color", "property"},
		{"=", "operator"},
		{"rgb", "type"},
		{"10", "number"},
		{"20", "number"},
		{"30", "number"},
		{"BIG", "decorator"},
		{"cost", "property"},
		{"=", "operator"},
		{"@[ x * 2 ]", "macro"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeTokens(t *testing.T) {
	t.Parallel()

	src := "a = 1\n\tb = \"é\"\n"
	f := analyze(t, "common/misc/m.txt", src)
	require.NoError(t, f.ParseError)

	data := analysis.EncodeTokens(f, analysis.Tokens(f))

	want := []uint32{
		0, 0, 1, uint32(analysis.TokenProperty), 0,
		0, 2, 1, uint32(analysis.TokenOperator), 0,
		0, 2, 1, uint32(analysis.TokenNumber), 0,
		1, 1, 1, uint32(analysis.TokenProperty), 0,
		0, 2, 1, uint32(analysis.TokenOperator), 0,
		0, 2, 3, uint32(analysis.TokenString), 0,
	}

	assert.Equal(t, want, data)
}

func TestEncodeTokens_Multiline(t *testing.T) {
	t.Parallel()

	src := "a = \"one\ntwo\"\n"
	f := analyze(t, "common/misc/m.txt", src)
	require.NoError(t, f.ParseError)

	data := analysis.EncodeTokens(f, analysis.Tokens(f))
	require.Len(t, data, 4*5)

	// The string is split at the line break; its first part starts two
	// columns after the operator.
	assert.Equal(t, []uint32{0, 2, 4, uint32(analysis.TokenString), 0}, data[10:15])
	assert.Equal(t, []uint32{1, 0, 4, uint32(analysis.TokenString), 0}, data[15:20])
}

func TestTokenLegend(t *testing.T) {
	t.Parallel()

	assert.Len(t, analysis.TokenLegend, 10)
	assert.Equal(t, "comment", analysis.TokenComment.String())
	assert.Equal(t, "decorator", analysis.TokenConditional.String())
	assert.Equal(t, "unknown", analysis.TokenKind(42).String())
}

package cw_test

import (
	"errors"
	"testing"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/cw"
)

type tokenExpect struct {
	typ lexer.TokenType
	val string
}

func lexTokens(t *testing.T, input string, opts ...cw.LexOption) []tokenExpect {
	t.Helper()

	toks, err := cw.Tokenize("", input, opts...)
	require.NoError(t, err)

	var out []tokenExpect

	for _, tok := range toks {
		if tok.Type == cw.TokenWhitespace || tok.EOF() {
			continue
		}

		out = append(out, tokenExpect{tok.Type, tok.Value})
	}

	return out
}

func TestLexer_Tokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []tokenExpect
	}{
		{
			name:  "expression",
			input: "key = value",
			expected: []tokenExpect{
				{cw.TokenIdent, "key"},
				{cw.TokenOp, "="},
				{cw.TokenIdent, "value"},
			},
		},
		{
			name:  "operators",
			input: "== != >= <= += -= *= = < >",
			expected: []tokenExpect{
				{cw.TokenOp, "=="}, {cw.TokenOp, "!="}, {cw.TokenOp, ">="},
				{cw.TokenOp, "<="}, {cw.TokenOp, "+="}, {cw.TokenOp, "-="},
				{cw.TokenOp, "*="}, {cw.TokenOp, "="}, {cw.TokenOp, "<"},
				{cw.TokenOp, ">"},
			},
		},
		{
			name:  "numbers",
			input: "1 -2 +3 4.5 10% -0.25%",
			expected: []tokenExpect{
				{cw.TokenNumber, "1"}, {cw.TokenNumber, "-2"}, {cw.TokenNumber, "+3"},
				{cw.TokenNumber, "4.5"}, {cw.TokenNumber, "10%"}, {cw.TokenNumber, "-0.25%"},
			},
		},
		{
			name:  "number before brace",
			input: "a=1}",
			expected: []tokenExpect{
				{cw.TokenIdent, "a"}, {cw.TokenOp, "="}, {cw.TokenNumber, "1"}, {cw.TokenRBrace, "}"},
			},
		},
		{
			name:     "date falls back to identifier",
			input:    "2200.1.1",
			expected: []tokenExpect{{cw.TokenIdent, "2200.1.1"}},
		},
		{
			name:     "digit led key with underscore",
			input:    "1_a",
			expected: []tokenExpect{{cw.TokenIdent, "1_a"}},
		},
		{
			name:  "quoted string keeps escapes",
			input: `"a \"b\" c"`,
			expected: []tokenExpect{
				{cw.TokenString, `"a \"b\" c"`},
			},
		},
		{
			name:  "extended identifier charset",
			input: "event_target:foo.owner @var $PARAM|x$ a-b/c's",
			expected: []tokenExpect{
				{cw.TokenIdent, "event_target:foo.owner"},
				{cw.TokenIdent, "@var"},
				{cw.TokenIdent, "$PARAM|x$"},
				{cw.TokenIdent, "a-b/c's"},
			},
		},
		{
			name:  "comment",
			input: "a # note\r\nb",
			expected: []tokenExpect{
				{cw.TokenIdent, "a"}, {cw.TokenComment, "# note"}, {cw.TokenIdent, "b"},
			},
		},
		{
			name:  "maths",
			input: `@[ a + 1 ] @\[ b * 2 \]`,
			expected: []tokenExpect{
				{cw.TokenMaths, "@[ a + 1 ]"}, {cw.TokenMaths, `@\[ b * 2 \]`},
			},
		},
		{
			name:  "conditional",
			input: "[[!PARAM] x ]",
			expected: []tokenExpect{
				{cw.TokenLBracket, "["}, {cw.TokenLBracket, "["}, {cw.TokenBang, "!"},
				{cw.TokenIdent, "PARAM"}, {cw.TokenRBracket, "]"}, {cw.TokenIdent, "x"},
				{cw.TokenRBracket, "]"},
			},
		},
		{
			name:     "unicode identifier",
			input:    "näme",
			expected: []tokenExpect{{cw.TokenIdent, "näme"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, lexTokens(t, tt.input))
		})
	}
}

func TestLexer_SchemaSyntax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []tokenExpect
	}{
		{
			name:  "typed identifiers",
			input: "enum[weapon_type] = alias_name[effect] <ship_size>",
			expected: []tokenExpect{
				{cw.TokenIdent, "enum[weapon_type]"},
				{cw.TokenOp, "="},
				{cw.TokenIdent, "alias_name[effect]"},
				{cw.TokenIdent, "<ship_size>"},
			},
		},
		{
			name:     "prefix and suffix",
			input:    "pre_<type>_suf",
			expected: []tokenExpect{{cw.TokenIdent, "pre_<type>_suf"}},
		},
		{
			name:     "alias with colon",
			input:    "alias[effect:set_flag]",
			expected: []tokenExpect{{cw.TokenIdent, "alias[effect:set_flag]"}},
		},
		{
			name:  "comparison is not a type",
			input: "a < 5",
			expected: []tokenExpect{
				{cw.TokenIdent, "a"}, {cw.TokenOp, "<"}, {cw.TokenNumber, "5"},
			},
		},
		{
			name:     "negated identifier",
			input:    "!value",
			expected: []tokenExpect{{cw.TokenIdent, "!value"}},
		},
		{
			name:  "doc comments",
			input: "### docs\n## cardinality = 0..1",
			expected: []tokenExpect{
				{cw.TokenComment, "### docs"}, {cw.TokenComment, "## cardinality = 0..1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, lexTokens(t, tt.input, cw.WithSchemaSyntax()))
		})
	}
}

func TestLexer_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		sentinel error
		line     int
		column   int
	}{
		{name: "letter after digits", input: "x = 1abc", sentinel: cw.ErrInvalidNumber, line: 1, column: 5},
		{name: "unterminated string", input: "a = \"oops", sentinel: cw.ErrUnterminatedString, line: 1, column: 5},
		{name: "unterminated maths", input: "@[ 1 + 2", sentinel: cw.ErrUnterminatedMaths, line: 1, column: 1},
		{name: "stray character", input: "a\n  ; b", sentinel: cw.ErrUnexpectedCharacter, line: 2, column: 3},
		{name: "paren ends number", input: "a = 1)", sentinel: cw.ErrUnexpectedCharacter, line: 1, column: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := cw.Tokenize("", tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)

			var pe *cw.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.column, pe.Column)
		})
	}
}

func TestLexer_Positions(t *testing.T) {
	t.Parallel()

	toks, err := cw.Tokenize("f.txt", "\ufeffa = {\n\tb\n}")
	require.NoError(t, err)

	var idents []cw.Token

	for _, tok := range toks {
		if tok.Type == cw.TokenIdent {
			idents = append(idents, tok)
		}
	}

	require.Len(t, idents, 2)

	assert.Equal(t, 3, idents[0].Pos.Offset, "offset counts the skipped BOM")
	assert.Equal(t, 1, idents[0].Pos.Line)
	assert.Equal(t, 1, idents[0].Pos.Column)
	assert.Equal(t, "f.txt", idents[0].Pos.Filename)

	assert.Equal(t, 2, idents[1].Pos.Line)
	assert.Equal(t, 2, idents[1].Pos.Column)
}

func TestIsIdentifier(t *testing.T) {
	t.Parallel()

	assert.True(t, cw.IsIdentifier("country_event"))
	assert.True(t, cw.IsIdentifier("@var"))
	assert.True(t, cw.IsIdentifier("a.b:c"))
	assert.False(t, cw.IsIdentifier(""))
	assert.False(t, cw.IsIdentifier("two words"))
	assert.False(t, cw.IsIdentifier("-x"))
}

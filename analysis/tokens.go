package analysis

import (
	"bytes"
	"slices"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/cw"
	"github.com/rlch/cw/interner"
)

// TokenKind classifies a semantic token. The values index TokenLegend.
type TokenKind uint32

// Token kinds.
const (
	TokenComment TokenKind = iota
	TokenString
	TokenNumber
	TokenKeyword
	TokenOperator
	TokenProperty
	TokenVariable
	TokenColor
	TokenMath
	TokenConditional
)

// TokenLegend names each TokenKind with the LSP token type editors theme.
var TokenLegend = []string{
	TokenComment:     "comment",
	TokenString:      "string",
	TokenNumber:      "number",
	TokenKeyword:     "keyword",
	TokenOperator:    "operator",
	TokenProperty:    "property",
	TokenVariable:    "variable",
	TokenColor:       "type",
	TokenMath:        "macro",
	TokenConditional: "decorator",
}

func (k TokenKind) String() string {
	if int(k) < len(TokenLegend) {
		return TokenLegend[k]
	}

	return "unknown"
}

// Token is a classified byte range.
type Token struct {
	Start, End int
	Kind       TokenKind
}

// keywords are the control keys and boolean values of the script language.
var keywords = interner.SetOf(
	"if", "else", "else_if", "limit", "AND", "OR", "NOT", "NOR", "NAND",
	"while", "switch", "default", "yes", "no",
)

func isKeyword(word string) bool {
	k, ok := interner.Get(word)

	return ok && keywords.Has(k)
}

// Tokens classifies every token of the file in source order.
func Tokens(f *AnalyzedFile) []Token {
	if f.Module == nil {
		return nil
	}

	t := &tokenizer{}

	for _, c := range cw.Comments(f.Module) {
		t.add(c.Span(), TokenComment)
	}

	cw.Walk(t, f.Module)

	slices.SortStableFunc(t.out, func(a, b Token) int { return a.Start - b.Start })

	return t.out
}

type tokenizer struct {
	out []Token
}

func (t *tokenizer) add(sp cw.Span, kind TokenKind) {
	if sp.End.Offset > sp.Start.Offset {
		t.out = append(t.out, Token{Start: sp.Start.Offset, End: sp.End.Offset, Kind: kind})
	}
}

func (t *tokenizer) Visit(n cw.Node) cw.Visitor {
	switch n := n.(type) {
	case *cw.Expression:
		switch {
		case n.Key.IsScriptedVariable():
			t.add(n.Key.Span(), TokenVariable)
		case !n.Key.Quoted && isKeyword(n.Key.Text):
			t.add(n.Key.Span(), TokenKeyword)
		default:
			t.add(n.Key.Span(), TokenProperty)
		}

		t.add(cw.Span{Start: n.OpPos, End: advance(n.OpPos, len(n.Op.String()))}, TokenOperator)
		cw.Walk(t, n.Value)

		return nil
	case *cw.Conditional:
		t.add(n.Key.Span(), TokenConditional)

		for _, it := range n.Items {
			cw.Walk(t, it)
		}

		return nil
	case *cw.String:
		switch {
		case n.IsScriptedVariable():
			t.add(n.Span(), TokenVariable)
		case !n.Quoted && isKeyword(n.Text):
			t.add(n.Span(), TokenKeyword)
		default:
			t.add(n.Span(), TokenString)
		}
	case *cw.Number:
		t.add(n.Span(), TokenNumber)
	case *cw.Maths:
		t.add(n.Span(), TokenMath)
	case *cw.Color:
		t.add(cw.Span{Start: n.Pos, End: advance(n.Pos, len(n.Kind))}, TokenColor)
	}

	return t
}

// advance moves a position n bytes along its line.
func advance(pos lexer.Position, n int) lexer.Position {
	pos.Offset += n
	pos.Column += n

	return pos
}

// EncodeTokens delta-encodes tokens for textDocument/semanticTokens: five
// integers per token, relative to the previous one. Tokens spanning several
// lines are split per line.
func EncodeTokens(f *AnalyzedFile, tokens []Token) []uint32 {
	ix := f.Lines()
	out := make([]uint32, 0, len(tokens)*5)

	var prevLine, prevChar uint32

	emit := func(start, end int, kind TokenKind) {
		line, char := ix.Position(start)
		length := ix.Units(start, end)

		if length == 0 {
			return
		}

		deltaChar := char
		if line == prevLine {
			deltaChar = char - prevChar
		}

		out = append(out, line-prevLine, deltaChar, length, uint32(kind), 0)
		prevLine, prevChar = line, char
	}

	for _, tok := range tokens {
		start := tok.Start

		for {
			nl := bytes.IndexByte(f.Content[start:tok.End], '\n')
			if nl < 0 {
				emit(start, tok.End, tok.Kind)

				break
			}

			emit(start, start+nl, tok.Kind)
			start += nl + 1
		}
	}

	return out
}

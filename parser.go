package cw

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// maxDepth bounds block nesting so hostile input cannot exhaust the stack.
const maxDepth = 512

// Parse parses script source.
func Parse(data []byte) (*Module, error) {
	return ParseFile("", data)
}

// ParseString parses script source held in a string.
func ParseString(filename, src string) (*Module, error) {
	return parse(filename, src)
}

// ParseFile parses script source, using filename for positions. Readme files
// shipped inside game folders (any name containing "99_README") are not
// script and parse to an empty module.
func ParseFile(filename string, data []byte) (*Module, error) {
	if strings.Contains(filepath.Base(filename), "99_README") {
		return &Module{Filename: filename}, nil
	}

	return parse(filename, string(data))
}

func parse(filename, src string) (*Module, error) {
	p := &parser{lex: NewLexer(filename, src)}
	if err := p.next(); err != nil {
		return nil, err
	}

	m := &Module{
		Filename: filename,
		HasBOM:   p.lex.HasBOM(),
		Pos:      lexer.Position{Filename: filename, Line: 1, Column: 1},
	}

	items, dangling, err := p.items(func(t Token) bool { return t.EOF() })
	if err != nil {
		return nil, err
	}

	m.Items = items
	m.Dangling = dangling
	m.EndPos = p.tok.EndPos

	return m, nil
}

// trivium is a run of whitespace or a single comment between significant
// tokens.
type trivium struct {
	comment  *Comment
	newlines int
}

type parser struct {
	lex *Lexer

	// tok is the current significant token; trivia holds everything lexed
	// between the previous significant token and tok.
	tok    Token
	trivia []trivium
	depth  int
}

func (p *parser) next() error {
	p.trivia = p.trivia[:0]

	for {
		t, err := p.lex.Next()
		if err != nil {
			return err
		}

		switch t.Type {
		case TokenWhitespace:
			p.trivia = append(p.trivia, trivium{newlines: t.Newlines()})
		case TokenComment:
			p.trivia = append(p.trivia, trivium{comment: &Comment{
				Text:   t.Value,
				Pos:    t.Pos,
				EndPos: t.EndPos,
			}})
		default:
			p.tok = t

			return nil
		}
	}
}

func (p *parser) errorf(sentinel error, format string, args ...any) error {
	return newParseError(p.tok.Span(), sentinel, format, args...)
}

func (p *parser) unexpected(context string) error {
	if p.tok.EOF() {
		return p.errorf(ErrUnexpectedEOF, "unexpected end of input %s", context)
	}

	return p.errorf(ErrUnexpectedToken, "unexpected %q %s", p.tok.Value, context)
}

// takeTrailing removes and returns a comment that sits on the same line as
// the previous token.
func (p *parser) takeTrailing() *Comment {
	for i, tr := range p.trivia {
		if tr.comment != nil {
			p.trivia = p.trivia[i+1:]

			return tr.comment
		}

		if tr.newlines > 0 {
			return nil
		}
	}

	return nil
}

// takeLeading consumes the pending trivia and returns the own-line comments
// plus the number of blank lines directly above the next token.
func (p *parser) takeLeading() ([]*Comment, int) {
	var comments []*Comment

	newlines := 0

	for _, tr := range p.trivia {
		if tr.comment == nil {
			newlines += tr.newlines

			continue
		}

		tr.comment.BlankLines = max(newlines-1, 0)
		comments = append(comments, tr.comment)
		newlines = 0
	}

	p.trivia = p.trivia[:0]

	return comments, max(newlines-1, 0)
}

// items parses block items until end reports true for the current token. The
// terminating token is not consumed.
func (p *parser) items(end func(Token) bool) ([]Item, []*Comment, error) {
	var items []Item

	for {
		if end(p.tok) {
			dangling, _ := p.takeLeading()

			return items, dangling, nil
		}

		if p.tok.EOF() {
			return nil, nil, p.errorf(ErrUnclosedBlock, "unexpected end of input, block is not closed")
		}

		leading, blank := p.takeLeading()

		it, err := p.item()
		if err != nil {
			return nil, nil, err
		}

		d := it.Decor()
		d.Leading = append(leading, d.Leading...)
		d.BlankLines = blank
		d.Trailing = p.takeTrailing()

		items = append(items, it)
	}
}

func (p *parser) item() (Item, error) {
	switch p.tok.Type {
	case TokenLBracket:
		return p.conditional()
	case TokenLBrace:
		v, err := p.entity()
		if err != nil {
			return nil, err
		}

		return &BareValue{Value: v}, nil
	case TokenIdent, TokenString, TokenNumber, TokenMaths:
		return p.keyedOrBare()
	}

	return nil, p.unexpected("at start of item")
}

// keyedOrBare parses an atom and decides from the following token whether it
// is the key of an expression, the head of a color or a bare value.
func (p *parser) keyedOrBare() (Item, error) {
	atom := p.tok

	if err := p.next(); err != nil {
		return nil, err
	}

	if p.tok.Type == TokenOp {
		key, ok := keyString(atom)
		if !ok {
			return nil, newParseError(atom.Span(), ErrUnexpectedToken, "%q cannot be used as a key", atom.Value)
		}

		// Comments between a key and its operator are kept as leading
		// comments of the expression.
		between, _ := p.takeLeading()

		return p.expression(key, between)
	}

	if atom.Type == TokenIdent && isColorKind(atom.Value) && p.tok.Type == TokenLBrace {
		v, err := p.color(atom)
		if err != nil {
			return nil, err
		}

		return &BareValue{Value: v}, nil
	}

	v, err := atomValue(atom)
	if err != nil {
		return nil, err
	}

	return &BareValue{Value: v}, nil
}

func keyString(t Token) (*String, bool) {
	switch t.Type {
	case TokenIdent, TokenNumber:
		return &String{Text: t.Value, Pos: t.Pos, EndPos: t.EndPos}, true
	case TokenString:
		return &String{Text: unquote(t.Value), Quoted: true, Pos: t.Pos, EndPos: t.EndPos}, true
	}

	return nil, false
}

func (p *parser) expression(key *String, between []*Comment) (*Expression, error) {
	op, ok := ParseOperator(p.tok.Value)
	if !ok {
		return nil, p.errorf(ErrUnexpectedToken, "unknown operator %q", p.tok.Value)
	}

	e := &Expression{Key: key, Op: op, OpPos: p.tok.Pos}
	e.Leading = between

	if err := p.next(); err != nil {
		return nil, err
	}

	v, err := p.value()
	if err != nil {
		return nil, err
	}

	e.Value = v

	return e, nil
}

// value parses the right-hand side of an expression.
func (p *parser) value() (Value, error) {
	switch p.tok.Type {
	case TokenLBrace:
		return p.entity()
	case TokenIdent, TokenString, TokenNumber, TokenMaths:
		atom := p.tok

		if err := p.next(); err != nil {
			return nil, err
		}

		if atom.Type == TokenIdent && isColorKind(atom.Value) && p.tok.Type == TokenLBrace {
			return p.color(atom)
		}

		return atomValue(atom)
	}

	return nil, p.unexpected("where a value was expected")
}

func atomValue(t Token) (Value, error) {
	switch t.Type {
	case TokenIdent:
		return &String{Text: t.Value, Pos: t.Pos, EndPos: t.EndPos}, nil
	case TokenString:
		return &String{Text: unquote(t.Value), Quoted: true, Pos: t.Pos, EndPos: t.EndPos}, nil
	case TokenNumber:
		text, percent := strings.CutSuffix(t.Value, "%")

		return &Number{Text: text, Percent: percent, Pos: t.Pos, EndPos: t.EndPos}, nil
	case TokenMaths:
		text, escaped := mathsInterior(t.Value)

		return &Maths{Text: text, Escaped: escaped, Pos: t.Pos, EndPos: t.EndPos}, nil
	}

	return nil, newParseError(t.Span(), ErrUnexpectedToken, "unexpected %q", t.Value)
}

func unquote(raw string) string {
	return raw[1 : len(raw)-1]
}

func mathsInterior(raw string) (string, bool) {
	if strings.HasPrefix(raw, `@\[`) {
		return raw[3 : len(raw)-2], true
	}

	return raw[2 : len(raw)-1], false
}

func isColorKind(s string) bool {
	switch s {
	case "rgb", "hsv", "hsv360":
		return true
	}

	return false
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.errorf(ErrTooDeep, "blocks nested deeper than %d levels", maxDepth)
	}

	return nil
}

func (p *parser) entity() (*Entity, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	e := &Entity{Pos: p.tok.Pos}

	if err := p.next(); err != nil {
		return nil, err
	}

	e.OpenComment = p.takeTrailing()

	items, dangling, err := p.items(func(t Token) bool { return t.Type == TokenRBrace })
	if err != nil {
		return nil, err
	}

	e.Items = items
	e.Dangling = dangling
	e.EndPos = p.tok.EndPos

	return e, p.next()
}

func (p *parser) color(kind Token) (*Color, error) {
	c := &Color{Kind: kind.Value, Pos: kind.Pos}

	if err := p.next(); err != nil { // {
		return nil, err
	}

	for p.tok.Type != TokenRBrace {
		switch p.tok.Type {
		case TokenNumber, TokenIdent:
			v, err := atomValue(p.tok)
			if err != nil {
				return nil, err
			}

			c.Components = append(c.Components, v)
		case TokenEOF:
			return nil, p.errorf(ErrUnclosedBlock, "unexpected end of input in %s color", kind.Value)
		default:
			return nil, p.errorf(ErrInvalidColor, "unexpected %q in %s color", p.tok.Value, kind.Value)
		}

		if err := p.next(); err != nil {
			return nil, err
		}
	}

	if n := len(c.Components); n < 3 || n > 4 {
		return nil, newParseError(Span{Start: c.Pos, End: p.tok.EndPos}, ErrInvalidColor,
			"%s color needs 3 or 4 components, got %d", kind.Value, n)
	}

	c.EndPos = p.tok.EndPos

	return c, p.next()
}

func (p *parser) conditional() (*Conditional, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	c := &Conditional{Pos: p.tok.Pos}

	if err := p.next(); err != nil {
		return nil, err
	}

	if p.tok.Type != TokenLBracket {
		return nil, p.unexpected("after '[', expected '[' to open a conditional block")
	}

	if err := p.next(); err != nil {
		return nil, err
	}

	if p.tok.Type == TokenBang {
		c.Negated = true

		if err := p.next(); err != nil {
			return nil, err
		}
	}

	if p.tok.Type != TokenIdent {
		return nil, p.unexpected("in conditional block, expected a parameter name")
	}

	c.Key = &String{Text: p.tok.Value, Pos: p.tok.Pos, EndPos: p.tok.EndPos}

	if err := p.next(); err != nil {
		return nil, err
	}

	if p.tok.Type != TokenRBracket {
		return nil, p.unexpected("after conditional parameter, expected ']'")
	}

	if err := p.next(); err != nil {
		return nil, err
	}

	items, dangling, err := p.items(func(t Token) bool { return t.Type == TokenRBracket })
	if err != nil {
		return nil, err
	}

	c.Items = items
	c.Dangling = dangling
	c.EndPos = p.tok.EndPos

	return c, p.next()
}

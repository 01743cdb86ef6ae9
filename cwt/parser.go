package cwt

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/cw"
)

const maxDepth = 256

// Parse parses schema source.
func Parse(data []byte) (*File, error) {
	return ParseFile("", data)
}

// ParseString parses schema source held in a string.
func ParseString(filename, src string) (*File, error) {
	return parse(filename, src)
}

// ParseFile parses a .cwt file, using filename for positions.
func ParseFile(filename string, data []byte) (*File, error) {
	return parse(filename, string(data))
}

func parse(filename, src string) (*File, error) {
	p := &parser{
		lex:  cw.NewLexer(filename, src, cw.WithSchemaSyntax()),
		file: &File{Filename: filename, Pos: lexer.Position{Filename: filename, Line: 1, Column: 1}},
	}

	if err := p.next(); err != nil {
		return nil, err
	}

	items, err := p.items(func(t cw.Token) bool { return t.EOF() })
	if err != nil {
		return nil, err
	}

	p.file.Items = items
	p.file.EndPos = p.tok.EndPos

	return p.file, nil
}

// comment is a comment token and whether a line break separates it from the
// preceding significant token.
type comment struct {
	tok     cw.Token
	ownLine bool
}

type parser struct {
	lex  *cw.Lexer
	file *File

	tok     cw.Token
	trivia  []comment
	pending Meta
	depth   int
}

func (p *parser) next() error {
	p.trivia = p.trivia[:0]
	newline := false

	for {
		t, err := p.lex.Next()
		if err != nil {
			return err
		}

		switch t.Type {
		case cw.TokenWhitespace:
			if t.Newlines() > 0 {
				newline = true
			}
		case cw.TokenComment:
			p.trivia = append(p.trivia, comment{tok: t, ownLine: newline})
		default:
			p.tok = t

			return nil
		}
	}
}

func (p *parser) unexpected(context string) error {
	if p.tok.EOF() {
		return cw.NewParseError(p.tok.Span(), cw.ErrUnexpectedEOF, "unexpected end of input %s", context)
	}

	return cw.NewParseError(p.tok.Span(), cw.ErrUnexpectedToken, "unexpected %q %s", p.tok.Value, context)
}

// attachTrailing gives comments on the line an item ended on to that item.
func (p *parser) attachTrailing(m *Meta) {
	n := 0

	for _, c := range p.trivia {
		if c.ownLine {
			break
		}

		p.absorb(m, c.tok)
		n++
	}

	p.trivia = p.trivia[n:]
}

// flushPending moves buffered own-line comments into the metadata waiting for
// the next item.
func (p *parser) flushPending() {
	for _, c := range p.trivia {
		p.absorb(&p.pending, c.tok)
	}

	p.trivia = p.trivia[:0]
}

// absorb records a ### or ## comment on m. Plain comments are dropped.
func (p *parser) absorb(m *Meta, t cw.Token) {
	switch {
	case strings.HasPrefix(t.Value, "###"):
		m.Doc = append(m.Doc, strings.TrimSpace(t.Value[3:]))
	case strings.HasPrefix(t.Value, "##"):
		opts, err := ParseOptions(t.Value[2:])
		if err != nil {
			p.file.OptionErrors = append(p.file.OptionErrors,
				cw.NewParseError(t.Span(), ErrInvalidOption, "%s", err.Error()))

			return
		}

		m.Options = append(m.Options, opts...)
	}
}

func (p *parser) takePending() Meta {
	m := p.pending
	p.pending = Meta{}

	return m
}

func (p *parser) items(end func(cw.Token) bool) ([]Item, error) {
	var items []Item

	for {
		p.flushPending()

		if end(p.tok) {
			// Metadata with no rule to attach to is discarded at block end.
			p.pending = Meta{}

			return items, nil
		}

		if p.tok.EOF() {
			return nil, cw.NewParseError(p.tok.Span(), cw.ErrUnclosedBlock, "unclosed block")
		}

		it, err := p.item()
		if err != nil {
			return nil, err
		}

		p.attachTrailing(it.Metadata())
		items = append(items, it)
	}
}

func (p *parser) item() (Item, error) {
	meta := p.takePending()

	switch p.tok.Type {
	case cw.TokenLBrace:
		b, err := p.block()
		if err != nil {
			return nil, err
		}

		return &BareValue{Meta: meta, Value: b}, nil

	case cw.TokenIdent, cw.TokenString, cw.TokenNumber:
		key := identifier(p.tok)

		if err := p.next(); err != nil {
			return nil, err
		}

		if p.tok.Type != cw.TokenOp {
			return &BareValue{Meta: meta, Value: key}, nil
		}

		op, ok := cw.ParseOperator(p.tok.Value)
		if !ok {
			return nil, cw.NewParseError(p.tok.Span(), cw.ErrUnexpectedToken, "unknown operator %q", p.tok.Value)
		}

		if err := p.next(); err != nil {
			return nil, err
		}

		// Options between the operator and the value still describe this rule.
		p.flushPending()
		meta.Doc = append(meta.Doc, p.pending.Doc...)
		meta.Options = append(meta.Options, p.pending.Options...)
		p.pending = Meta{}

		v, err := p.value()
		if err != nil {
			return nil, err
		}

		return &Rule{Meta: meta, Key: key, Op: op, Value: v}, nil
	}

	return nil, p.unexpected("at start of rule")
}

func (p *parser) value() (Value, error) {
	switch p.tok.Type {
	case cw.TokenLBrace:
		return p.block()
	case cw.TokenIdent, cw.TokenString, cw.TokenNumber:
		id := identifier(p.tok)

		return id, p.next()
	}

	return nil, p.unexpected("after operator")
}

func (p *parser) block() (*Block, error) {
	if p.depth >= maxDepth {
		return nil, cw.NewParseError(p.tok.Span(), cw.ErrTooDeep, "blocks nested deeper than %d", maxDepth)
	}

	p.depth++
	defer func() { p.depth-- }()

	b := &Block{Pos: p.tok.Pos}

	if err := p.next(); err != nil {
		return nil, err
	}

	items, err := p.items(func(t cw.Token) bool { return t.Type == cw.TokenRBrace })
	if err != nil {
		return nil, err
	}

	b.Items = items
	b.EndPos = p.tok.EndPos

	return b, p.next()
}

func identifier(t cw.Token) *Identifier {
	if t.Type == cw.TokenString {
		s := &cw.String{Text: t.Value[1 : len(t.Value)-1], Quoted: true}

		return &Identifier{Text: s.Unescaped(), Quoted: true, Pos: t.Pos, EndPos: t.EndPos}
	}

	id := Classify(t.Value)
	id.Pos = t.Pos
	id.EndPos = t.EndPos

	return &id
}

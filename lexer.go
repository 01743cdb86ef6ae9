package cw

import (
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token type constants - negative values as per participle convention.
const (
	TokenEOF        lexer.TokenType = lexer.EOF
	TokenComment    lexer.TokenType = -(iota + 2) //nolint:mnd // participle convention
	TokenWhitespace                               // spaces, tabs, newlines
	TokenString                                   // "quoted"
	TokenIdent                                    // unquoted strings, keys, typed identifiers
	TokenNumber                                   // [+-]digits(.digits)?%?
	TokenOp                                       // = == != < <= > >= += -= *=
	TokenLBrace                                   // {
	TokenRBrace                                   // }
	TokenLBracket                                 // [
	TokenRBracket                                 // ]
	TokenBang                                     // ! (conditional negation)
	TokenMaths                                    // @[ ... ] or @\[ ... \]
)

// Token is a lexed token with its full source extent.
type Token struct {
	Type   lexer.TokenType
	Value  string // raw source text
	Pos    lexer.Position
	EndPos lexer.Position
}

// Span returns the token's source range.
func (t Token) Span() Span { return Span{Start: t.Pos, End: t.EndPos} }

// EOF reports whether t is the end-of-input token.
func (t Token) EOF() bool { return t.Type == TokenEOF }

// Newlines counts line breaks in a whitespace token.
func (t Token) Newlines() int { return strings.Count(t.Value, "\n") }

// LexOption configures a Lexer.
type LexOption func(*Lexer)

// WithSchemaSyntax enables the schema-file extensions: typed identifiers such
// as enum[x], <type> and prefix<type>suffix, and a leading ! on identifiers.
func WithSchemaSyntax() LexOption {
	return func(l *Lexer) { l.schema = true }
}

// Lexer turns script source into tokens. It is shared by the script and the
// schema parsers.
type Lexer struct {
	filename string
	input    string
	offset   int
	line     int
	col      int
	schema   bool
	hasBOM   bool
}

const bom = "\ufeff"

// NewLexer creates a lexer over input. A leading UTF-8 BOM is skipped.
func NewLexer(filename, input string, opts ...LexOption) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    input,
		line:     1,
		col:      1,
	}

	for _, opt := range opts {
		opt(l)
	}

	if strings.HasPrefix(input, bom) {
		l.offset = len(bom)
		l.hasBOM = true
	}

	return l
}

// HasBOM reports whether the input started with a byte order mark.
func (l *Lexer) HasBOM() bool { return l.hasBOM }

// Tokenize lexes the whole input.
func Tokenize(filename, input string, opts ...LexOption) ([]Token, error) {
	l := NewLexer(filename, input, opts...)

	var toks []Token

	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}

		toks = append(toks, tok)

		if tok.EOF() {
			return toks, nil
		}
	}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	if l.eof() {
		return l.token(TokenEOF, l.pos()), nil
	}

	start := l.pos()
	c := l.peek()

	switch {
	case isSpace(c):
		for !l.eof() && isSpace(l.peek()) {
			l.advance()
		}

		return l.token(TokenWhitespace, start), nil

	case c == '#':
		for !l.eof() && l.peek() != '\n' {
			l.advance()
		}

		tok := l.token(TokenComment, start)
		tok.Value = strings.TrimRight(tok.Value, "\r")

		return tok, nil

	case c == '"':
		return l.scanString(start)

	case c == '@' && (l.peekAt(1) == '[' || (l.peekAt(1) == '\\' && l.peekAt(2) == '[')):
		return l.scanMaths(start)

	case isDigit(c) || ((c == '-' || c == '+') && isDigit(l.peekAt(1))):
		return l.scanNumber(start)

	case l.schema && c == '<' && isIdentStart(l.peekAt(1)) && l.closesAngle():
		return l.scanIdent(start), nil

	case l.schema && c == '!' && (isIdentStart(l.peekAt(1)) || l.peekAt(1) == '<'):
		return l.scanIdent(start), nil

	case isIdentStart(c):
		return l.scanIdent(start), nil
	}

	if tok, ok := l.scanOp(start); ok {
		return tok, nil
	}

	l.advance()

	switch c {
	case '{':
		return l.token(TokenLBrace, start), nil
	case '}':
		return l.token(TokenRBrace, start), nil
	case '[':
		return l.token(TokenLBracket, start), nil
	case ']':
		return l.token(TokenRBracket, start), nil
	case '!':
		return l.token(TokenBang, start), nil
	}

	return Token{}, newParseError(Span{Start: start, End: l.pos()}, ErrUnexpectedCharacter,
		"unexpected character %q", l.input[start.Offset:l.offset])
}

func (l *Lexer) pos() lexer.Position {
	return lexer.Position{
		Filename: l.filename,
		Offset:   l.offset,
		Line:     l.line,
		Column:   l.col,
	}
}

func (l *Lexer) eof() bool {
	return l.offset >= len(l.input)
}

func (l *Lexer) peek() byte {
	if l.eof() {
		return 0
	}

	return l.input[l.offset]
}

func (l *Lexer) peekAt(n int) byte {
	off := l.offset + n
	if off >= len(l.input) {
		return 0
	}

	return l.input[off]
}

// advance consumes one rune; columns count runes, offsets count bytes.
func (l *Lexer) advance() {
	if l.eof() {
		return
	}

	c := l.input[l.offset]
	if c < utf8.RuneSelf {
		l.offset++
	} else {
		_, size := utf8.DecodeRuneInString(l.input[l.offset:])
		l.offset += size
	}

	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) match(s string) bool {
	return strings.HasPrefix(l.input[l.offset:], s)
}

func (l *Lexer) token(typ lexer.TokenType, start lexer.Position) Token {
	return Token{
		Type:   typ,
		Value:  l.input[start.Offset:l.offset],
		Pos:    start,
		EndPos: l.pos(),
	}
}

func (l *Lexer) scanString(start lexer.Position) (Token, error) {
	l.advance() // opening quote

	for !l.eof() {
		switch l.peek() {
		case '\\':
			l.advance()

			if !l.eof() {
				l.advance()
			}
		case '"':
			l.advance()

			return l.token(TokenString, start), nil
		default:
			l.advance()
		}
	}

	return Token{}, newParseError(Span{Start: start, End: l.pos()}, ErrUnterminatedString, "unterminated string")
}

func (l *Lexer) scanMaths(start lexer.Position) (Token, error) {
	closer := "]"

	l.advance() // @

	if l.peek() == '\\' {
		l.advance()

		closer = `\]`
	}

	l.advance() // [

	for !l.eof() {
		if l.match(closer) {
			for range len(closer) {
				l.advance()
			}

			return l.token(TokenMaths, start), nil
		}

		l.advance()
	}

	return Token{}, newParseError(Span{Start: start, End: l.pos()}, ErrUnterminatedMaths, "unterminated inline maths")
}

// scanNumber scans [+-]digits(.digits)?%? and requires a value terminator
// after it. Digit-led tokens that continue with identifier punctuation (dates
// such as 2200.1.1, keys such as 1_a) fall back to identifiers; a letter
// directly after the digits is an error.
func (l *Lexer) scanNumber(start lexer.Position) (Token, error) {
	if l.peek() == '-' || l.peek() == '+' {
		l.advance()
	}

	for isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()

		for isDigit(l.peek()) {
			l.advance()
		}
	}

	if l.peek() == '%' {
		l.advance()
	}

	next := l.peek()

	switch {
	case l.eof() || isValueTerminator(next):
		return l.token(TokenNumber, start), nil
	case isLetter(next):
		for !l.eof() && isIdentContinue(l.peek()) {
			l.advance()
		}

		return Token{}, newParseError(Span{Start: start, End: l.pos()}, ErrInvalidNumber,
			"invalid number %q", l.input[start.Offset:l.offset])
	case isIdentContinue(next) && l.input[l.offset-1] != '%':
		for !l.eof() && isIdentContinue(l.peek()) {
			l.advance()
		}

		return l.token(TokenIdent, start), nil
	}

	return Token{}, newParseError(Span{Start: start, End: l.pos()}, ErrInvalidNumber,
		"invalid number %q", l.input[start.Offset:l.offset+1])
}

func (l *Lexer) scanIdent(start lexer.Position) Token {
	if l.peek() == '!' {
		l.advance()
	}

	for !l.eof() {
		c := l.peek()

		switch {
		case isIdentContinue(c):
			l.advance()
		case l.schema && c == '[':
			l.skipBalanced('[', ']')
		case l.schema && c == '<' && l.closesAngle():
			l.skipBalanced('<', '>')
		default:
			return l.token(TokenIdent, start)
		}
	}

	return l.token(TokenIdent, start)
}

// closesAngle reports whether the '<' at the cursor is closed by '>' before
// any whitespace, which makes it part of a typed identifier.
func (l *Lexer) closesAngle() bool {
	for i := l.offset + 1; i < len(l.input); i++ {
		c := l.input[i]
		if c == '>' {
			return i > l.offset+1
		}

		if isSpace(c) || c == '=' || c == '{' || c == '}' {
			return false
		}
	}

	return false
}

func (l *Lexer) skipBalanced(open, closeCh byte) {
	depth := 0

	for !l.eof() {
		c := l.peek()
		if c == '\n' {
			return
		}

		l.advance()

		switch c {
		case open:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

var multiCharOps = []string{"==", "!=", ">=", "<=", "+=", "-=", "*="}

func (l *Lexer) scanOp(start lexer.Position) (Token, bool) {
	for _, op := range multiCharOps {
		if l.match(op) {
			l.advance()
			l.advance()

			return l.token(TokenOp, start), true
		}
	}

	switch l.peek() {
	case '=', '<', '>':
		l.advance()

		return l.token(TokenOp, start), true
	}

	return Token{}, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isIdentStart accepts the first byte of an unquoted string. Bytes of
// multi-byte UTF-8 sequences are accepted so localised names lex as one token.
func isIdentStart(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '@' || c == '$' || c >= utf8.RuneSelf
}

func isIdentContinue(c byte) bool {
	if isIdentStart(c) {
		return true
	}

	switch c {
	case ':', '.', '-', '|', '/', '\'':
		return true
	}

	return false
}

// isValueTerminator reports whether c may directly follow a number.
func isValueTerminator(c byte) bool {
	return isSpace(c) || strings.IndexByte("#}])=<>", c) >= 0
}

// IsIdentifier reports whether s can be written without quotes.
func IsIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}

	for i := 1; i < len(s); i++ {
		if !isIdentContinue(s[i]) {
			return false
		}
	}

	return true
}

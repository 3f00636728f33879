package ast

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// eof represents a marker rune for the end of the input.
const eof = rune(0)

// Lexer represents a lexical scanner over a single source string.
type Lexer struct {
	src  string
	off  int
	line int
	pos  int

	// start of the token being scanned
	startOff  int
	startLine int
	startPos  int
}

// NewLexer returns a new instance of Lexer.
func NewLexer(src string) *Lexer {
	return &Lexer{
		src:  src,
		line: 1,
		pos:  1,
	}
}

// Scan returns the next token. Once the input is exhausted every call returns
// an EOF token.
func (l *Lexer) Scan() (Token, error) {
	l.skip()
	l.startOff, l.startLine, l.startPos = l.off, l.line, l.pos

	for _, scan := range []func() (*Token, error){
		l.scanEOF,
		l.scanString,
		l.scanNumeric,
		l.scanSymbol,
		l.scanWord,
	} {
		tok, err := scan()
		if err != nil {
			return Token{}, err
		}
		if tok != nil {
			return *tok, nil
		}
	}
	return Token{}, l.scanIllegal()
}

// Tokens returns the token sequence of src, ending with EOF or the first
// error. Each iteration lexes src again from the beginning.
func Tokens(src string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		l := NewLexer(src)
		for {
			tok, err := l.Scan()
			if err != nil {
				yield(Token{}, err)
				return
			}
			if !yield(tok, nil) || tok.Type == EOF {
				return
			}
		}
	}
}

// Tokenize lexes all of src. The last token is always EOF.
func Tokenize(src string) ([]Token, error) {
	var toks []Token
	for tok, err := range Tokens(src) {
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

// SplitStatements splits a script into single statements at each top-level
// ";". Each returned statement keeps its terminating semicolon; a trailing
// statement without one is returned as is so that parsing reports it.
func SplitStatements(src string) ([]string, error) {
	var (
		stmts []string
		start = -1
	)
	for tok, err := range Tokens(src) {
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case SEMICOLON:
			if start >= 0 {
				stmts = append(stmts, strings.TrimSpace(src[start:tok.Offset+1]))
			}
			start = -1
		case EOF:
			if start >= 0 {
				stmts = append(stmts, strings.TrimSpace(src[start:]))
			}
		default:
			if start < 0 {
				start = tok.Offset
			}
		}
	}
	return stmts, nil
}

// Complete reports whether src ends with a ";" that is outside any string
// literal or comment. A lex error other than an unterminated string makes src
// complete, so that running it reports the error.
func Complete(src string) bool {
	last := EOF
	for tok, err := range Tokens(src) {
		if err != nil {
			lexErr, ok := err.(*LexError)
			return !ok || lexErr.Char != '\''
		}
		if tok.Type != EOF {
			last = tok.Type
		}
	}
	return last == SEMICOLON
}

func (l *Lexer) newToken(typ TokenType, value string) *Token {
	return &Token{
		Type:   typ,
		Raw:    l.src[l.startOff:l.off],
		Value:  value,
		Line:   l.startLine,
		Pos:    l.startPos,
		Offset: l.startOff,
	}
}

func (l *Lexer) errorf(ch rune, msg string) *LexError {
	return &LexError{
		Line:   l.startLine,
		Pos:    l.startPos,
		Offset: l.startOff,
		Char:   ch,
		Msg:    msg,
	}
}

// skip consumes whitespace and "--" line comments.
func (l *Lexer) skip() {
	for {
		switch ch := l.peek(); {
		case isWS(ch):
			l.read()
		case ch == '-' && l.peekAfter(1) == '-':
			for ch := l.peek(); ch != '\n' && ch != eof; ch = l.peek() {
				l.read()
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanEOF() (*Token, error) {
	if l.off < len(l.src) {
		return nil, nil
	}
	return l.newToken(EOF, ""), nil
}

// scans a single-quoted string literal. There are no escape sequences: the
// next quote always ends the literal.
func (l *Lexer) scanString() (*Token, error) {
	if l.peek() != '\'' {
		return nil, nil
	}
	l.read()

	end := strings.IndexByte(l.src[l.off:], '\'')
	if end < 0 {
		for l.peek() != eof {
			l.read()
		}
		return nil, l.errorf('\'', "unterminated string literal")
	}

	value := l.src[l.off : l.off+end]
	for i := 0; i <= utf8.RuneCountInString(value); i++ {
		l.read()
	}
	return l.newToken(STRING, value), nil
}

// scans an integer or float literal with an optional leading sign.
func (l *Lexer) scanNumeric() (*Token, error) {
	n := 0
	if ch := l.peek(); ch == '+' || ch == '-' {
		n++
	}
	if !isDigit(l.peekAfter(n)) {
		if n > 0 {
			return nil, l.errorf(l.peek(), "sign must be followed by a digit")
		}
		return nil, nil
	}
	for isDigit(l.peekAfter(n)) {
		n++
	}

	typ := INTNUM
	if l.peekAfter(n) == '.' {
		typ = FLOATNUM
		n++
		for isDigit(l.peekAfter(n)) {
			n++
		}
	}

	l.readN(n)
	raw := l.src[l.startOff:l.off]
	return l.newToken(typ, raw), nil
}

func (l *Lexer) scanSymbol() (*Token, error) {
	typ, ok := symbols[l.peek()]
	if !ok {
		return nil, nil
	}
	l.read()
	return l.newToken(typ, l.src[l.startOff:l.off]), nil
}

// scans a keyword or an identifier. Keywords are matched case-insensitively,
// identifiers keep their case.
func (l *Lexer) scanWord() (*Token, error) {
	if !isIdentStart(l.peek()) {
		return nil, nil
	}
	for isIdent(l.peek()) {
		l.read()
	}
	word := l.src[l.startOff:l.off]
	if typ, ok := lookupKeyword[strings.ToUpper(word)]; ok {
		return l.newToken(typ, word), nil
	}
	return l.newToken(IDENT, word), nil
}

func (l *Lexer) scanIllegal() error {
	return l.errorf(l.peek(), "unexpected character")
}

// read consumes the next rune. Returns eof at the end of the input.
func (l *Lexer) read() rune {
	if l.off >= len(l.src) {
		return eof
	}
	ch, size := utf8.DecodeRuneInString(l.src[l.off:])
	l.off += size
	if ch == '\n' {
		l.line++
		l.pos = 1
	} else {
		l.pos++
	}
	return ch
}

func (l *Lexer) readN(n int) {
	for i := 0; i < n; i++ {
		l.read()
	}
}

func (l *Lexer) peek() rune {
	return l.peekAfter(0)
}

// peekAfter returns the rune n runes ahead without consuming anything.
func (l *Lexer) peekAfter(n int) rune {
	off := l.off
	for i := 0; ; i++ {
		if off >= len(l.src) {
			return eof
		}
		ch, size := utf8.DecodeRuneInString(l.src[off:])
		if i == n {
			return ch
		}
		off += size
	}
}

func isWS(ch rune) bool {
	return ch != eof && unicode.IsSpace(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isLetter(ch rune) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isIdentStart(ch rune) bool {
	return isLetter(ch) || ch == '_'
}

func isIdent(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}

var symbols = map[rune]TokenType{
	'*': STAR,
	',': COMMA,
	'(': LPAREN,
	')': RPAREN,
	';': SEMICOLON,
}

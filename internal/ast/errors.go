package ast

import (
	"fmt"
	"strings"
)

// LexError reports input the lexer could not turn into a token.
type LexError struct {
	Line   int
	Pos    int
	Offset int
	// Char is the offending character: the unrecognized one, or the opening
	// quote of an unterminated string.
	Char rune
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at line %d position %d: %s %q", e.Line, e.Pos, e.Msg, e.Char)
}

// ParseError reports a token that does not fit the grammar.
type ParseError struct {
	Expected []TokenType
	Found    Token
	// Msg replaces the expected/found description when set.
	Msg string
}

func (e *ParseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Found.At(), e.Msg)
	}
	found := fmt.Sprintf("%q", e.Found.Raw)
	if e.Found.Type == EOF {
		found = "end of input"
	}
	return fmt.Sprintf("parse error at %s: expected %s, found %s", e.Found.At(), expectedList(e.Expected), found)
}

func expectedList(types []TokenType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	switch len(names) {
	case 0:
		return "nothing"
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
	}
}

package ast

import (
	"fmt"
	"strconv"
)

type Token struct {
	// Type categorizes the token.
	Type TokenType
	// Raw is the exact source text of this token.
	Raw string
	// Value is the decoded text: the contents of a string literal without its
	// quotes, otherwise the same as Raw.
	Value string
	// Line is the 1-indexed line on which this token appears.
	Line int
	// Pos is the 1-indexed position where this token appears on its line.
	Pos int
	// Offset is the 0-indexed byte offset of the token in the source.
	Offset int
}

func (t Token) String() string {
	if t.Type == EOF {
		return "EOF"
	}
	return t.Raw
}

// At formats the location of the token for error messages.
func (t Token) At() string {
	return fmt.Sprintf("line %d position %d", t.Line, t.Pos)
}

// TokenType is the kind of a lexical token.
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Symbols
	STAR      // *
	COMMA     // ,
	LPAREN    // (
	RPAREN    // )
	SEMICOLON // ;

	// Keywords
	CREATE
	TABLE
	INSERT
	INTO
	VALUES
	SELECT
	FROM
	DEFAULT

	// Type keywords
	INT
	INTEGER
	FLOAT
	DOUBLE
	TEXT
	VARCHAR
	STRINGTYPE // STRING
	BOOLEAN
	BOOL

	// Literals
	STRING   // 'foo'
	INTNUM   // 123, -4
	FLOATNUM // 123.456
	TRUE     // true|TRUE
	FALSE    // false|FALSE

	// Identifiers
	IDENT // table_name, column_name
)

var tokenNames = map[TokenType]string{
	ILLEGAL:   "ILLEGAL",
	EOF:       "EOF",
	STAR:      `"*"`,
	COMMA:     `","`,
	LPAREN:    `"("`,
	RPAREN:    `")"`,
	SEMICOLON: `";"`,
	STRING:    "string literal",
	INTNUM:    "integer literal",
	FLOATNUM:  "float literal",
	IDENT:     "identifier",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	if kw, ok := keywords[t]; ok {
		return kw
	}
	return "TokenType(" + strconv.Itoa(int(t)) + ")"
}

func (t TokenType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	_, ok := keywords[t]
	return ok
}

// IsType reports whether t names a column type.
func (t TokenType) IsType() bool {
	return tokenIn(t, INT, INTEGER, FLOAT, DOUBLE, TEXT, VARCHAR, STRINGTYPE, BOOLEAN, BOOL)
}

// IsLiteral reports whether t is a value literal.
func (t TokenType) IsLiteral() bool {
	return tokenIn(t, STRING, INTNUM, FLOATNUM, TRUE, FALSE)
}

func tokenIn(tok TokenType, in ...TokenType) bool {
	for _, t := range in {
		if tok == t {
			return true
		}
	}
	return false
}

var keywords = map[TokenType]string{
	CREATE:     "CREATE",
	TABLE:      "TABLE",
	INSERT:     "INSERT",
	INTO:       "INTO",
	VALUES:     "VALUES",
	SELECT:     "SELECT",
	FROM:       "FROM",
	DEFAULT:    "DEFAULT",
	INT:        "INT",
	INTEGER:    "INTEGER",
	FLOAT:      "FLOAT",
	DOUBLE:     "DOUBLE",
	TEXT:       "TEXT",
	VARCHAR:    "VARCHAR",
	STRINGTYPE: "STRING",
	BOOLEAN:    "BOOLEAN",
	BOOL:       "BOOL",
	TRUE:       "TRUE",
	FALSE:      "FALSE",
}

// lookupKeyword is keyed by the upper-cased word.
var lookupKeyword = func() map[string]TokenType {
	m := make(map[string]TokenType, len(keywords))
	for typ, kw := range keywords {
		m[kw] = typ
	}
	return m
}()

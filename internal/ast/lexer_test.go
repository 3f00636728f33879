package ast

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	toks, err := Tokenize(src)
	require.NoError(t, err)
	var typs []TokenType
	for _, tok := range toks {
		typs = append(typs, tok.Type)
	}
	return typs
}

func TestLexer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
	}{
		{
			name:  "create table",
			input: "CREATE TABLE users (id INT, name TEXT, active BOOLEAN);",
			want: []TokenType{
				CREATE, TABLE, IDENT, LPAREN,
				IDENT, INT, COMMA, IDENT, TEXT, COMMA, IDENT, BOOLEAN,
				RPAREN, SEMICOLON, EOF,
			},
		},
		{
			name:  "insert literals",
			input: "insert into t values (1, -2, +3, 4.5, -0.5, 'x y', true, FALSE);",
			want: []TokenType{
				INSERT, INTO, IDENT, VALUES, LPAREN,
				INTNUM, COMMA, INTNUM, COMMA, INTNUM, COMMA, FLOATNUM, COMMA, FLOATNUM, COMMA,
				STRING, COMMA, TRUE, COMMA, FALSE,
				RPAREN, SEMICOLON, EOF,
			},
		},
		{
			name:  "select star",
			input: "select * from tbl;",
			want:  []TokenType{SELECT, STAR, FROM, IDENT, SEMICOLON, EOF},
		},
		{
			name:  "type aliases",
			input: "integer double varchar string bool",
			want:  []TokenType{INTEGER, DOUBLE, VARCHAR, STRINGTYPE, BOOL, EOF},
		},
		{
			name:  "string type is not a string literal",
			input: "name STRING DEFAULT 'x'",
			want:  []TokenType{IDENT, STRINGTYPE, DEFAULT, STRING, EOF},
		},
		{
			name:  "comments and whitespace",
			input: "-- leading comment\n\tSELECT a -- trailing\n FROM t ;",
			want:  []TokenType{SELECT, IDENT, FROM, IDENT, SEMICOLON, EOF},
		},
		{
			name:  "keyword prefix is an identifier",
			input: "selection intx _from from1",
			want:  []TokenType{IDENT, IDENT, IDENT, IDENT, EOF},
		},
		{
			name:  "empty input",
			input: "   ",
			want:  []TokenType{EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenTypes(t, tt.input))
		})
	}
}

func TestLexerTokenText(t *testing.T) {
	toks, err := Tokenize("SELECT Name FROM Users WHERE 'it''s'")
	// The second quote pair makes a second literal; WHERE is just an identifier.
	require.NoError(t, err)

	assert.Equal(t, "SELECT", toks[0].Raw)
	assert.Equal(t, "Name", toks[1].Raw, "identifiers keep their case")
	assert.Equal(t, IDENT, toks[4].Type)
	assert.Equal(t, STRING, toks[5].Type)
	assert.Equal(t, "'it'", toks[5].Raw)
	assert.Equal(t, "it", toks[5].Value)
	assert.Equal(t, "s", toks[6].Value)
}

func TestLexerKeywordCase(t *testing.T) {
	toks, err := Tokenize("sElEcT")
	require.NoError(t, err)
	assert.Equal(t, SELECT, toks[0].Type)
	assert.Equal(t, "sElEcT", toks[0].Raw)
}

func TestLexerPositions(t *testing.T) {
	toks, err := Tokenize("SELECT a\n  FROM t;")
	require.NoError(t, err)

	from := toks[2]
	assert.Equal(t, FROM, from.Type)
	assert.Equal(t, 2, from.Line)
	assert.Equal(t, 3, from.Pos)
	assert.Equal(t, 11, from.Offset)

	eof := toks[len(toks)-1]
	assert.Equal(t, EOF, eof.Type)
	assert.Equal(t, 2, eof.Line)
	assert.Equal(t, 10, eof.Pos)
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		pos   int
		char  rune
	}{
		{name: "unterminated string", input: "INSERT INTO t VALUES ('abc", line: 1, pos: 23, char: '\''},
		{name: "unrecognized character", input: "SELECT a = b", line: 1, pos: 10, char: '='},
		{name: "dangling sign", input: "VALUES (- 1)", line: 1, pos: 9, char: '-'},
		{name: "second decimal point", input: "1.2.3", line: 1, pos: 4, char: '.'},
		{name: "leading decimal point", input: "(.5)", line: 1, pos: 2, char: '.'},
		{name: "non ascii", input: "\nSELECT é", line: 2, pos: 8, char: 'é'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			require.Error(t, err)

			var lexErr *LexError
			require.True(t, errors.As(err, &lexErr), "got %T", err)
			assert.Equal(t, tt.line, lexErr.Line)
			assert.Equal(t, tt.pos, lexErr.Pos)
			assert.Equal(t, tt.char, lexErr.Char)
		})
	}
}

func TestTokensRestartable(t *testing.T) {
	seq := Tokens("SELECT * FROM t;")

	var first, second []Token
	for tok, err := range seq {
		require.NoError(t, err)
		first = append(first, tok)
	}
	for tok, err := range seq {
		require.NoError(t, err)
		second = append(second, tok)
	}
	assert.Equal(t, first, second)
	assert.Len(t, first, 6)
}

func TestTokensStopEarly(t *testing.T) {
	var n int
	for range Tokens("SELECT * FROM t;") {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestScanAfterEOF(t *testing.T) {
	l := NewLexer("x")
	for i, want := range []TokenType{IDENT, EOF, EOF} {
		tok, err := l.Scan()
		require.NoError(t, err)
		assert.Equal(t, want, tok.Type, "scan %d", i)
	}
}

func TestSplitStatements(t *testing.T) {
	script := `
		CREATE TABLE t (s TEXT);
		-- the semicolon inside the literal does not split
		INSERT INTO t VALUES ('a;b');;
		SELECT * FROM t`

	stmts, err := SplitStatements(script)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE t (s TEXT);",
		"INSERT INTO t VALUES ('a;b');",
		"SELECT * FROM t",
	}, stmts)

	_, err = SplitStatements("SELECT 'oops;")
	assert.Error(t, err)
}

func TestComplete(t *testing.T) {
	tests := map[string]bool{
		"SELECT * FROM t;":                   true,
		"SELECT * FROM t;  -- done":          true,
		"SELECT * FROM t":                    false,
		"":                                   false,
		"INSERT INTO t VALUES ('a;":          false,
		"INSERT INTO t VALUES ('a;\nb');":    true,
		"SELECT * FROM t -- later;":          false,
		"SELECT # FROM t;":                   true,
		"CREATE TABLE t (\n  n INT\n);\n":    true,
		"INSERT INTO t VALUES ('x;y'), ('z'": false,
	}
	for src, want := range tests {
		assert.Equal(t, want, Complete(src), "%q", src)
	}
}

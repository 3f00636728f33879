package ast

import (
	"strconv"

	"github.com/kevin-cantwell/minisql/internal/types"
)

// Parser is a recursive-descent parser with one token of lookahead. Each
// Parser reads exactly one statement.
type Parser struct {
	lex       *Lexer
	scanned   []Token
	unscanned []Token
}

func NewParser(src string) *Parser {
	return &Parser{lex: NewLexer(src)}
}

// Parse parses src, which must hold exactly one statement terminated by ";".
func Parse(src string) (Statement, error) {
	return NewParser(src).Parse()
}

// Parse returns the statement, or a *LexError or *ParseError. No partially
// built statement is ever returned.
func (p *Parser) Parse() (Statement, error) {
	t, err := p.scan()
	if err != nil {
		return nil, err
	}
	p.unscan()

	var stmt Statement
	switch t.Type {
	case CREATE:
		stmt, err = p.parseCreateTable()
	case INSERT:
		stmt, err = p.parseInsert()
	case SELECT:
		stmt, err = p.parseSelect()
	default:
		return nil, expected(t, CREATE, INSERT, SELECT)
	}
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	if _, err := p.expect(EOF); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) scan() (Token, error) {
	var t Token
	if len(p.unscanned) > 0 {
		t = p.unscanned[len(p.unscanned)-1]
		p.unscanned = p.unscanned[:len(p.unscanned)-1]
	} else {
		tok, err := p.lex.Scan()
		if err != nil {
			return Token{}, err
		}
		t = tok
	}
	p.scanned = append(p.scanned, t)
	return t, nil
}

func (p *Parser) unscan() {
	if len(p.scanned) == 0 {
		return
	}
	t := p.scanned[len(p.scanned)-1]
	p.scanned = p.scanned[:len(p.scanned)-1]
	p.unscanned = append(p.unscanned, t)
}

// expect scans the next token and fails unless it is one of want.
func (p *Parser) expect(want ...TokenType) (Token, error) {
	t, err := p.scan()
	if err != nil {
		return Token{}, err
	}
	if !tokenIn(t.Type, want...) {
		return Token{}, expected(t, want...)
	}
	return t, nil
}

func expected(found Token, want ...TokenType) *ParseError {
	return &ParseError{Expected: want, Found: found}
}

// CREATE TABLE ident '(' coldef (',' coldef)* ')'
func (p *Parser) parseCreateTable() (*CreateTableStatement, error) {
	if _, err := p.expect(CREATE); err != nil {
		return nil, err
	}
	if _, err := p.expect(TABLE); err != nil {
		return nil, err
	}
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	stmt := &CreateTableStatement{Name: name.Raw}
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, col)

		t, err := p.expect(COMMA, RPAREN)
		if err != nil {
			return nil, err
		}
		if t.Type == RPAREN {
			return stmt, nil
		}
	}
}

// ident type_kw [DEFAULT literal]
func (p *Parser) parseColumnDef() (ColumnDef, error) {
	name, err := p.expect(IDENT)
	if err != nil {
		return ColumnDef{}, err
	}

	t, err := p.scan()
	if err != nil {
		return ColumnDef{}, err
	}
	if !t.Type.IsType() {
		return ColumnDef{}, expected(t, INT, FLOAT, TEXT, BOOLEAN)
	}
	typ, err := types.ParseColumnType(t.Raw)
	if err != nil {
		return ColumnDef{}, &ParseError{Found: t, Msg: err.Error()}
	}

	col := ColumnDef{Name: name.Raw, Type: typ, Token: name}

	t, err = p.scan()
	if err != nil {
		return ColumnDef{}, err
	}
	if t.Type != DEFAULT {
		p.unscan()
		return col, nil
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return ColumnDef{}, err
	}
	col.Default = &lit
	return col, nil
}

// INSERT INTO ident ['(' ident (',' ident)* ')'] VALUES tuple (',' tuple)*
func (p *Parser) parseInsert() (*InsertStatement, error) {
	if _, err := p.expect(INSERT); err != nil {
		return nil, err
	}
	if _, err := p.expect(INTO); err != nil {
		return nil, err
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	stmt := &InsertStatement{Table: table.Raw}

	t, err := p.expect(LPAREN, VALUES)
	if err != nil {
		return nil, err
	}
	if t.Type == LPAREN {
		cols, err := p.parseColumnRefs(RPAREN)
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
		if _, err := p.expect(VALUES); err != nil {
			return nil, err
		}
	}

	for {
		row, err := p.parseTuple()
		if err != nil {
			return nil, err
		}
		stmt.Rows = append(stmt.Rows, row)

		t, err := p.scan()
		if err != nil {
			return nil, err
		}
		if t.Type != COMMA {
			p.unscan()
			return stmt, nil
		}
	}
}

// '(' literal (',' literal)* ')'
func (p *Parser) parseTuple() ([]Literal, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var row []Literal
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		row = append(row, lit)

		t, err := p.expect(COMMA, RPAREN)
		if err != nil {
			return nil, err
		}
		if t.Type == RPAREN {
			return row, nil
		}
	}
}

func (p *Parser) parseLiteral() (Literal, error) {
	t, err := p.scan()
	if err != nil {
		return Literal{}, err
	}

	var val types.Value
	switch t.Type {
	case INTNUM:
		i, err := strconv.ParseInt(t.Raw, 10, 64)
		if err != nil {
			return Literal{}, &ParseError{Found: t, Msg: "integer literal " + t.Raw + " out of range"}
		}
		val = types.Int(i)
	case FLOATNUM:
		f, err := strconv.ParseFloat(t.Raw, 64)
		if err != nil {
			return Literal{}, &ParseError{Found: t, Msg: "float literal " + t.Raw + " out of range"}
		}
		val = types.Float(f)
	case STRING:
		val = types.Text(t.Value)
	case TRUE:
		val = types.Bool(true)
	case FALSE:
		val = types.Bool(false)
	default:
		return Literal{}, expected(t, INTNUM, FLOATNUM, STRING, TRUE, FALSE)
	}
	return Literal{Value: val, Token: t}, nil
}

// SELECT ('*' | ident (',' ident)*) FROM ident
func (p *Parser) parseSelect() (*SelectStatement, error) {
	if _, err := p.expect(SELECT); err != nil {
		return nil, err
	}
	stmt := &SelectStatement{}

	t, err := p.expect(STAR, IDENT)
	if err != nil {
		return nil, err
	}
	if t.Type == STAR {
		stmt.Star = true
		if _, err := p.expect(FROM); err != nil {
			return nil, err
		}
	} else {
		p.unscan()
		cols, err := p.parseColumnRefs(FROM)
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
	}

	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	stmt.Table = table.Raw
	return stmt, nil
}

// ident (',' ident)* followed by the terminator, which is consumed.
func (p *Parser) parseColumnRefs(terminator TokenType) ([]ColumnRef, error) {
	var refs []ColumnRef
	for {
		t, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ColumnRef{Name: t.Raw, Token: t})

		t, err = p.expect(COMMA, terminator)
		if err != nil {
			return nil, err
		}
		if t.Type == terminator {
			return refs, nil
		}
	}
}

package ast

import (
	"strings"

	"github.com/kevin-cantwell/minisql/internal/types"
)

// Statement is a single parsed SQL statement. String renders it back to
// canonical SQL.
type Statement interface {
	String() string
	stmtNode()
}

// CreateTableStatement represents CREATE TABLE name (col type, ...).
type CreateTableStatement struct {
	Name    string
	Columns []ColumnDef
}

func (*CreateTableStatement) stmtNode() {}

func (s *CreateTableStatement) String() string {
	cols := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		cols[i] = col.Name + " " + col.Type.String()
		if col.Default != nil {
			cols[i] += " DEFAULT " + types.Literal(col.Default.Value)
		}
	}
	return "CREATE TABLE " + s.Name + " (" + strings.Join(cols, ", ") + ");"
}

// ColumnDef is one column of a CREATE TABLE statement.
type ColumnDef struct {
	Name string
	Type types.ColumnType
	// Default is the DEFAULT literal, if any.
	Default *Literal
	// Token is the column name token.
	Token Token
}

// InsertStatement represents INSERT INTO table [(cols)] VALUES (...), ....
type InsertStatement struct {
	Table string
	// Columns is the optional explicit column list; nil means schema order.
	Columns []ColumnRef
	Rows    [][]Literal
}

func (*InsertStatement) stmtNode() {}

func (s *InsertStatement) String() string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.Table)
	if len(s.Columns) > 0 {
		b.WriteString(" (")
		b.WriteString(joinRefs(s.Columns))
		b.WriteString(")")
	}
	b.WriteString(" VALUES ")
	for i, row := range s.Rows {
		if i > 0 {
			b.WriteString(", ")
		}
		vals := make([]string, len(row))
		for j, lit := range row {
			vals[j] = types.Literal(lit.Value)
		}
		b.WriteString("(" + strings.Join(vals, ", ") + ")")
	}
	b.WriteString(";")
	return b.String()
}

// Literal is a constant in a VALUES list, already converted to a typed value.
type Literal struct {
	Value types.Value
	Token Token
}

// SelectStatement represents SELECT * | col, ... FROM table.
type SelectStatement struct {
	Table string
	// Star is set for SELECT *; Columns is empty then.
	Star    bool
	Columns []ColumnRef
}

func (*SelectStatement) stmtNode() {}

func (s *SelectStatement) String() string {
	proj := "*"
	if !s.Star {
		proj = joinRefs(s.Columns)
	}
	return "SELECT " + proj + " FROM " + s.Table + ";"
}

// ColumnRef is a column named in a projection or an INSERT column list.
type ColumnRef struct {
	Name  string
	Token Token
}

func joinRefs(refs []ColumnRef) string {
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name
	}
	return strings.Join(names, ", ")
}

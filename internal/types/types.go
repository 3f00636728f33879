// Package types defines the column types and typed values stored by the engine.
package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ColumnType is the declared type of a column. The set is closed.
type ColumnType uint

const (
	IntType ColumnType = iota
	FloatType
	TextType
	BoolType
)

func (c ColumnType) String() string {
	switch c {
	case IntType:
		return "INT"
	case FloatType:
		return "FLOAT"
	case TextType:
		return "TEXT"
	case BoolType:
		return "BOOLEAN"
	default:
		return fmt.Sprintf("ColumnType(%d)", uint(c))
	}
}

// ParseColumnType maps a type keyword (or one of its aliases) to a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToUpper(s) {
	case "INT", "INTEGER":
		return IntType, nil
	case "FLOAT", "DOUBLE":
		return FloatType, nil
	case "TEXT", "VARCHAR", "STRING":
		return TextType, nil
	case "BOOLEAN", "BOOL":
		return BoolType, nil
	default:
		return 0, errors.Errorf("unknown column type %q", s)
	}
}

// Value is a single typed cell. The only implementations are Int, Float, Text
// and Bool.
type Value interface {
	Type() ColumnType
	String() string
	value()
}

type (
	Int   int64
	Float float64
	Text  string
	Bool  bool
)

func (Int) Type() ColumnType   { return IntType }
func (Float) Type() ColumnType { return FloatType }
func (Text) Type() ColumnType  { return TextType }
func (Bool) Type() ColumnType  { return BoolType }

func (Int) value()   {}
func (Float) value() {}
func (Text) value()  {}
func (Bool) value()  {}

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// String renders the float as decimal text, always with a fractional part.
func (v Float) String() string {
	f := float64(v)
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) || strings.ContainsRune(s, '.') {
		return s
	}
	return s + ".0"
}

func (v Text) String() string { return string(v) }

func (v Bool) String() string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// Native returns the value as a plain Go value (int64, float64, string, bool).
func Native(v Value) interface{} {
	switch v := v.(type) {
	case Int:
		return int64(v)
	case Float:
		return float64(v)
	case Text:
		return string(v)
	case Bool:
		return bool(v)
	default:
		panic(fmt.Sprintf("types: unhandled value %T", v))
	}
}

// Literal renders the value the way it would be written in a SQL statement.
func Literal(v Value) string {
	switch v := v.(type) {
	case Int, Float, Bool:
		return v.String()
	case Text:
		return "'" + string(v) + "'"
	default:
		panic(fmt.Sprintf("types: unhandled value %T", v))
	}
}

// Row is one tuple of values, positionally aligned with a Schema.
type Row []Value

// Column is a named, typed column definition. Default, if set, fills the
// column when an INSERT or a load gives it no value.
type Column struct {
	Name    string
	Type    ColumnType
	Default Value
}

// Schema is the ordered list of a table's columns.
type Schema []Column

// Index returns the position of the named column or -1.
func (s Schema) Index(name string) int {
	for i, col := range s {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}
	return names
}

// Conforms reports whether row has the schema's length and per-position types.
func (s Schema) Conforms(row Row) error {
	if len(row) != len(s) {
		return errors.Errorf("expected %d values, got %d", len(s), len(row))
	}
	for i, col := range s {
		if row[i] == nil {
			return errors.Errorf("column %q: missing value", col.Name)
		}
		if row[i].Type() != col.Type {
			return errors.Errorf("column %q: expected %s, got %s", col.Name, col.Type, row[i].Type())
		}
	}
	return nil
}

package types

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrCoerce is returned when an external value cannot be converted to a column type.
var ErrCoerce = errors.New("cannot coerce value")

// Coerce converts a plain Go value read from an external source (CSV cells,
// decoded JSON, SQLite columns) to a Value of type t.
//
// Unlike INSERT literals, imported numbers are converted between INT and FLOAT
// when no precision is lost, since CSV and JSON do not keep the distinction.
func Coerce(raw interface{}, t ColumnType) (Value, error) {
	switch v := raw.(type) {
	case Value:
		return Coerce(Native(v), t)
	case []byte:
		return Coerce(string(v), t)
	case string:
		return Parse(v, t)
	case int:
		return coerceInt(int64(v), t)
	case int64:
		return coerceInt(v, t)
	case float64:
		return coerceFloat(v, t)
	case bool:
		if t == BoolType {
			return Bool(v), nil
		}
	case nil:
		return nil, errors.Wrapf(ErrCoerce, "null into %s column", t)
	}
	return nil, errors.Wrapf(ErrCoerce, "%T %v into %s column", raw, raw, t)
}

// Parse converts text to a Value of type t.
func Parse(s string, t ColumnType) (Value, error) {
	switch t {
	case IntType:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrCoerce, "%q into %s column", s, t)
		}
		return Int(i), nil
	case FloatType:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.Wrapf(ErrCoerce, "%q into %s column", s, t)
		}
		return Float(f), nil
	case TextType:
		return Text(s), nil
	case BoolType:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
		if err != nil {
			return nil, errors.Wrapf(ErrCoerce, "%q into %s column", s, t)
		}
		return Bool(b), nil
	default:
		panic("types: unhandled column type " + t.String())
	}
}

func coerceInt(i int64, t ColumnType) (Value, error) {
	switch t {
	case IntType:
		return Int(i), nil
	case FloatType:
		return Float(float64(i)), nil
	case BoolType:
		// SQLite stores booleans as 0/1.
		if i == 0 || i == 1 {
			return Bool(i == 1), nil
		}
	case TextType:
	default:
		panic("types: unhandled column type " + t.String())
	}
	return nil, errors.Wrapf(ErrCoerce, "%d into %s column", i, t)
}

func coerceFloat(f float64, t ColumnType) (Value, error) {
	switch t {
	case FloatType:
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			return Float(f), nil
		}
	case IntType:
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return Int(int64(f)), nil
		}
	case TextType, BoolType:
	default:
		panic("types: unhandled column type " + t.String())
	}
	return nil, errors.Wrapf(ErrCoerce, "%v into %s column", f, t)
}

package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies execution errors.
type Kind int

const (
	TableExists Kind = iota + 1
	DuplicateColumn
	ColumnCountMismatch
	TypeMismatch
	UnknownColumn
	UnknownTable
)

// Sentinels matched by errors.Is against any *ExecError of the same Kind.
var (
	ErrTableExists         = errors.New("table exists")
	ErrDuplicateColumn     = errors.New("duplicate column")
	ErrColumnCountMismatch = errors.New("column count mismatch")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrUnknownColumn       = errors.New("unknown column")
	ErrUnknownTable        = errors.New("unknown table")
)

func (k Kind) sentinel() error {
	switch k {
	case TableExists:
		return ErrTableExists
	case DuplicateColumn:
		return ErrDuplicateColumn
	case ColumnCountMismatch:
		return ErrColumnCountMismatch
	case TypeMismatch:
		return ErrTypeMismatch
	case UnknownColumn:
		return ErrUnknownColumn
	case UnknownTable:
		return ErrUnknownTable
	default:
		panic(fmt.Sprintf("engine: unhandled error kind %d", k))
	}
}

func (k Kind) String() string { return k.sentinel().Error() }

// ExecError is a statement that parsed but could not be executed against the
// catalog. Nothing has been changed when one is returned.
type ExecError struct {
	Kind   Kind
	Table  string
	Column string
	// Expected and Actual describe count and type mismatches.
	Expected string
	Actual   string
	// Err is the lower-level cause, if any.
	Err error
}

func (e *ExecError) Error() string {
	switch e.Kind {
	case TableExists:
		return fmt.Sprintf("table %s already exists", e.Table)
	case DuplicateColumn:
		return fmt.Sprintf("duplicate column %q in table %s", e.Column, e.Table)
	case ColumnCountMismatch:
		if e.Column != "" {
			return fmt.Sprintf("table %s: expected %s values, got %s (column %q has no default)", e.Table, e.Expected, e.Actual, e.Column)
		}
		return fmt.Sprintf("table %s: expected %s values, got %s", e.Table, e.Expected, e.Actual)
	case TypeMismatch:
		return fmt.Sprintf("column %q of table %s: expected %s, got %s", e.Column, e.Table, e.Expected, e.Actual)
	case UnknownColumn:
		return fmt.Sprintf("column %q does not exist in table %s", e.Column, e.Table)
	case UnknownTable:
		return fmt.Sprintf("table %s does not exist", e.Table)
	default:
		panic(fmt.Sprintf("engine: unhandled error kind %d", e.Kind))
	}
}

func (e *ExecError) Unwrap() error { return e.Err }

func (e *ExecError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

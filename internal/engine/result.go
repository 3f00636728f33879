package engine

import (
	"fmt"

	"github.com/dustin/go-humanize/english"

	"github.com/kevin-cantwell/minisql/internal/types"
)

// ResultKind says which statement produced a Result.
type ResultKind int

const (
	Created ResultKind = iota + 1
	Inserted
	Selected
)

func (k ResultKind) String() string {
	switch k {
	case Created:
		return "create"
	case Inserted:
		return "insert"
	case Selected:
		return "select"
	default:
		panic(fmt.Sprintf("engine: unhandled result kind %d", int(k)))
	}
}

// Result is the outcome of one statement. Columns and Rows are only set for
// Selected results.
type Result struct {
	Kind         ResultKind
	Table        string
	RowsAffected int
	Columns      types.Schema
	Rows         []types.Row
}

// String is a one-line summary, e.g. "INSERT 2 rows into users".
func (r *Result) String() string {
	switch r.Kind {
	case Created:
		return fmt.Sprintf("CREATE TABLE %s", r.Table)
	case Inserted:
		return fmt.Sprintf("INSERT %s into %s", english.Plural(r.RowsAffected, "row", ""), r.Table)
	case Selected:
		return fmt.Sprintf("SELECT %s from %s", english.Plural(len(r.Rows), "row", ""), r.Table)
	default:
		panic(fmt.Sprintf("engine: unhandled result kind %d", r.Kind))
	}
}

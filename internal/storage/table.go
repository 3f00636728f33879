// Package storage holds table rows in memory.
package storage

import (
	"iter"

	"github.com/pkg/errors"

	"github.com/kevin-cantwell/minisql/internal/types"
)

// ErrSchemaMismatch is returned when a row does not fit the table schema.
var ErrSchemaMismatch = errors.New("row does not match schema")

// Table is an append-only, insertion-ordered row store. It does no locking of
// its own; callers serialize access.
type Table struct {
	name   string
	schema types.Schema
	rows   []types.Row
}

// New returns an empty table. The schema is copied and never changes.
func New(name string, schema types.Schema) *Table {
	return &Table{
		name:   name,
		schema: append(types.Schema(nil), schema...),
	}
}

func (t *Table) Name() string { return t.name }

// Schema returns a copy of the table schema.
func (t *Table) Schema() types.Schema {
	return append(types.Schema(nil), t.schema...)
}

func (t *Table) Len() int { return len(t.rows) }

// Append validates row and appends a copy of it. Nothing is appended on error.
func (t *Table) Append(row types.Row) error {
	if err := t.schema.Conforms(row); err != nil {
		return errors.Wrapf(ErrSchemaMismatch, "table %s: %v", t.name, err)
	}
	t.rows = append(t.rows, append(types.Row(nil), row...))
	return nil
}

// AppendAll validates every row before appending any of them.
func (t *Table) AppendAll(rows []types.Row) error {
	for i, row := range rows {
		if err := t.schema.Conforms(row); err != nil {
			return errors.Wrapf(ErrSchemaMismatch, "table %s: row %d: %v", t.name, i+1, err)
		}
	}
	for _, row := range rows {
		t.rows = append(t.rows, append(types.Row(nil), row...))
	}
	return nil
}

// Scan yields the rows present when Scan was called, in insertion order.
// The sequence can be ranged over more than once.
func (t *Table) Scan() iter.Seq[types.Row] {
	rows := t.rows[:len(t.rows):len(t.rows)]
	return func(yield func(types.Row) bool) {
		for _, row := range rows {
			if !yield(row) {
				return
			}
		}
	}
}

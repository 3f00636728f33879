package engine

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/kevin-cantwell/minisql/internal/ast"
	"github.com/kevin-cantwell/minisql/internal/types"
)

func (e *Engine) insert(s *ast.InsertStatement) (*Result, error) {
	tbl, err := e.table(s.Table)
	if err != nil {
		return nil, err
	}
	schema := tbl.Schema()

	positions, err := insertPositions(s, schema)
	if err != nil {
		return nil, err
	}

	// Every tuple is checked before anything is appended.
	rows := make([]types.Row, 0, len(s.Rows))
	for _, tuple := range s.Rows {
		if len(tuple) > len(positions) || (len(tuple) < len(positions) && s.Columns != nil) {
			return nil, &ExecError{
				Kind:     ColumnCountMismatch,
				Table:    s.Table,
				Expected: strconv.Itoa(len(positions)),
				Actual:   strconv.Itoa(len(tuple)),
			}
		}
		row := make(types.Row, len(schema))
		for i, lit := range tuple {
			col := schema[positions[i]]
			if lit.Value == nil || lit.Value.Type() != col.Type {
				return nil, &ExecError{
					Kind:     TypeMismatch,
					Table:    s.Table,
					Column:   col.Name,
					Expected: col.Type.String(),
					Actual:   describeLiteral(lit),
				}
			}
			row[positions[i]] = lit.Value
		}
		if err := fillDefaults(s.Table, schema, row, len(tuple)); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if err := tbl.AppendAll(rows); err != nil {
		return nil, errors.Wrapf(err, "insert into %s", s.Table)
	}
	return &Result{Kind: Inserted, Table: s.Table, RowsAffected: len(rows)}, nil
}

// insertPositions maps each value position of a tuple to its schema index.
// An explicit column list must name every column without a default exactly
// once.
func insertPositions(s *ast.InsertStatement, schema types.Schema) ([]int, error) {
	positions := make([]int, 0, len(schema))
	if s.Columns == nil {
		for i := range schema {
			positions = append(positions, i)
		}
		return positions, nil
	}

	seen := make([]bool, len(schema))
	for _, ref := range s.Columns {
		idx := schema.Index(ref.Name)
		if idx < 0 {
			return nil, &ExecError{Kind: UnknownColumn, Table: s.Table, Column: ref.Name}
		}
		if seen[idx] {
			return nil, &ExecError{Kind: DuplicateColumn, Table: s.Table, Column: ref.Name}
		}
		seen[idx] = true
		positions = append(positions, idx)
	}
	for i, col := range schema {
		if !seen[i] && col.Default == nil {
			return nil, &ExecError{
				Kind:     ColumnCountMismatch,
				Table:    s.Table,
				Column:   col.Name,
				Expected: strconv.Itoa(len(schema)),
				Actual:   strconv.Itoa(len(positions)),
			}
		}
	}
	return positions, nil
}

// fillDefaults sets every unset value of row from its column default. A
// positional tuple of n values may only leave out trailing columns that all
// have defaults.
func fillDefaults(table string, schema types.Schema, row types.Row, n int) error {
	for i, col := range schema {
		if row[i] != nil {
			continue
		}
		if col.Default == nil {
			return &ExecError{
				Kind:     ColumnCountMismatch,
				Table:    table,
				Column:   col.Name,
				Expected: strconv.Itoa(len(schema)),
				Actual:   strconv.Itoa(n),
			}
		}
		row[i] = col.Default
	}
	return nil
}

func describeLiteral(lit ast.Literal) string {
	if lit.Value == nil {
		return "no value"
	}
	desc := lit.Value.Type().String() + " " + types.Literal(lit.Value)
	if lit.Token.Line > 0 {
		desc += " at " + lit.Token.At()
	}
	return desc
}

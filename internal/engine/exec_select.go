package engine

import (
	"github.com/kevin-cantwell/minisql/internal/ast"
	"github.com/kevin-cantwell/minisql/internal/types"
)

func (e *Engine) selectRows(s *ast.SelectStatement) (*Result, error) {
	tbl, err := e.table(s.Table)
	if err != nil {
		return nil, err
	}
	schema := tbl.Schema()

	var (
		columns types.Schema
		indexes []int
	)
	if s.Star {
		columns = schema
		for i := range schema {
			indexes = append(indexes, i)
		}
	} else {
		for _, ref := range s.Columns {
			idx := schema.Index(ref.Name)
			if idx < 0 {
				return nil, &ExecError{Kind: UnknownColumn, Table: s.Table, Column: ref.Name}
			}
			columns = append(columns, schema[idx])
			indexes = append(indexes, idx)
		}
	}

	rows := make([]types.Row, 0, tbl.Len())
	for row := range tbl.Scan() {
		out := make(types.Row, len(indexes))
		for i, idx := range indexes {
			out[i] = row[idx]
		}
		rows = append(rows, out)
	}
	return &Result{Kind: Selected, Table: s.Table, Columns: columns, Rows: rows}, nil
}

package engine

import (
	"github.com/pkg/errors"

	"github.com/kevin-cantwell/minisql/internal/ast"
	"github.com/kevin-cantwell/minisql/internal/catalog"
	"github.com/kevin-cantwell/minisql/internal/types"
)

func (e *Engine) createTable(s *ast.CreateTableStatement) (*Result, error) {
	if len(s.Columns) == 0 {
		return nil, &ExecError{Kind: ColumnCountMismatch, Table: s.Name, Expected: "at least 1", Actual: "0"}
	}

	schema := make(types.Schema, 0, len(s.Columns))
	seen := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		if seen[col.Name] {
			return nil, &ExecError{Kind: DuplicateColumn, Table: s.Name, Column: col.Name}
		}
		seen[col.Name] = true

		def := types.Column{Name: col.Name, Type: col.Type}
		if col.Default != nil {
			if col.Default.Value == nil || col.Default.Value.Type() != col.Type {
				return nil, &ExecError{
					Kind:     TypeMismatch,
					Table:    s.Name,
					Column:   col.Name,
					Expected: col.Type.String(),
					Actual:   describeLiteral(*col.Default),
				}
			}
			def.Default = col.Default.Value
		}
		schema = append(schema, def)
	}

	if err := e.catalog.Define(s.Name, schema); err != nil {
		if errors.Is(err, catalog.ErrDuplicateTable) {
			return nil, &ExecError{Kind: TableExists, Table: s.Name, Err: err}
		}
		return nil, err
	}
	return &Result{Kind: Created, Table: s.Name}, nil
}

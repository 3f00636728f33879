package engine

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kevin-cantwell/minisql/internal/source"
	"github.com/kevin-cantwell/minisql/internal/types"
)

// Load reads every record of src into the named table, converting each field
// to its column type. Record keys are matched to column names; extra keys are
// ignored and missing keys take the column default. Nothing is appended unless every record converts.
func (e *Engine) Load(ctx context.Context, table string, src source.Source) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tbl, err := e.table(table)
	if err != nil {
		return 0, err
	}
	schema := tbl.Schema()

	ch, err := src.Records()
	if err != nil {
		return 0, errors.Wrapf(err, "source %s", src.Name())
	}

	var rows []types.Row
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case rec, ok := <-ch:
			if !ok {
				if err := src.Err(); err != nil {
					return 0, errors.Wrapf(err, "source %s", src.Name())
				}
				if err := tbl.AppendAll(rows); err != nil {
					return 0, errors.Wrapf(err, "load %s", table)
				}
				e.log.WithFields(logrus.Fields{
					"source": src.Name(),
					"table":  table,
					"rows":   len(rows),
				}).Debug("source loaded")
				return len(rows), nil
			}
			row, err := recordRow(table, schema, rec)
			if err != nil {
				return 0, errors.Wrapf(err, "source %s: record %d", src.Name(), len(rows)+1)
			}
			rows = append(rows, row)
		}
	}
}

func recordRow(table string, schema types.Schema, rec source.Record) (types.Row, error) {
	row := make(types.Row, len(schema))
	for i, col := range schema {
		raw, ok := rec[col.Name]
		if !ok {
			if col.Default == nil {
				return nil, errors.Wrapf(ErrColumnCountMismatch, "missing value for column %q", col.Name)
			}
			row[i] = col.Default
			continue
		}
		v, err := types.Coerce(raw, col.Type)
		if err != nil {
			return nil, &ExecError{
				Kind:     TypeMismatch,
				Table:    table,
				Column:   col.Name,
				Expected: col.Type.String(),
				Actual:   fmt.Sprintf("%T %v", raw, raw),
				Err:      err,
			}
		}
		row[i] = v
	}
	return row, nil
}

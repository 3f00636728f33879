package source

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/kevin-cantwell/minisql/internal/database"
)

// SQLiteSource reads records from a table in a SQLite database file.
type SQLiteSource struct {
	*stream
	name  string
	path  string
	table string
}

// NewSQLiteSource creates a source that reads all rows from a SQLite table.
// The path is the database file. The table defaults to name if not specified.
// The goroutine is started lazily on first call to Records().
func NewSQLiteSource(name, path, table string) (*SQLiteSource, error) {
	if table == "" {
		table = name
	}
	return &SQLiteSource{
		stream: newStream(),
		name:   name,
		path:   path,
		table:  table,
	}, nil
}

func (s *SQLiteSource) Type() SourceType { return Static }
func (s *SQLiteSource) Name() string     { return s.name }

func (s *SQLiteSource) Records() (<-chan Record, error) {
	return s.start(s.read), nil
}

func (s *SQLiteSource) read(emit func(Record) bool) error {
	db, err := sql.Open(database.DriverName, s.path)
	if err != nil {
		return errors.Wrap(err, "open sqlite source")
	}
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %s", database.QuoteIdent(s.table)))
	if err != nil {
		return errors.Wrapf(err, "query %s", s.table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return errors.Wrapf(err, "scan %s", s.table)
		}

		rec := make(Record, len(cols))
		for i, col := range cols {
			rec[col] = vals[i]
		}
		if !emit(rec) {
			return nil
		}
	}
	return rows.Err()
}

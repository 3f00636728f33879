// Package database snapshots a catalog to a SQLite file and restores it.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kevin-cantwell/minisql/internal/catalog"
	"github.com/kevin-cantwell/minisql/internal/types"
)

var (
	// ErrNoSnapshot is returned by Load when the file holds no snapshot yet.
	ErrNoSnapshot = errors.New("no snapshot")
	// ErrChecksum is returned by Load when the stored rows do not hash to the
	// recorded checksum.
	ErrChecksum = errors.New("snapshot checksum mismatch")
)

const metaSchema = `
CREATE TABLE IF NOT EXISTS minisql_snapshot (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	tables     INTEGER NOT NULL,
	rows       INTEGER NOT NULL,
	checksum   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS minisql_tables (
	name     TEXT PRIMARY KEY,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS minisql_columns (
	table_name TEXT NOT NULL,
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL,
	dflt,
	PRIMARY KEY (table_name, position)
);`

// Snapshot describes one saved catalog.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Tables    int
	Rows      int
	Checksum  string
}

// Store is a SQLite file holding at most one snapshot.
type Store struct {
	db   *sql.DB
	path string
	log  logrus.FieldLogger
}

type Option func(*Store)

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

// Open opens (creating if needed) the snapshot file at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	db.SetMaxOpenConns(1) // sqlite does not support concurrent write access.
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(-1)

	s := &Store{db: db, path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot with the full content of cat.
func (s *Store) Save(ctx context.Context, cat *catalog.Catalog) (snap *Snapshot, finalErr error) {
	tables := tablesOf(cat)

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin snapshot")
	}
	defer func() {
		if finalErr != nil {
			_ = txn.Rollback()
		} else {
			finalErr = errors.Wrap(txn.Commit(), "commit snapshot")
		}
	}()

	if _, err := txn.ExecContext(ctx, metaSchema); err != nil {
		return nil, errors.Wrap(err, "create snapshot schema")
	}
	if err := clearSnapshot(ctx, txn); err != nil {
		return nil, err
	}

	snap = &Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Tables:    len(tables),
		Checksum:  checksum(tables),
	}
	for pos, t := range tables {
		if err := saveTable(ctx, txn, pos, t); err != nil {
			return nil, errors.Wrapf(err, "save table %s", t.name)
		}
		snap.Rows += len(t.rows)
	}

	_, err = txn.ExecContext(ctx,
		`INSERT INTO minisql_snapshot (id, created_at, tables, rows, checksum) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.CreatedAt.Format(time.RFC3339Nano), snap.Tables, snap.Rows, snap.Checksum)
	if err != nil {
		return nil, errors.Wrap(err, "record snapshot")
	}

	s.log.WithFields(logrus.Fields{
		"snapshot": snap.ID,
		"tables":   snap.Tables,
		"rows":     snap.Rows,
	}).Debug("snapshot saved")
	return snap, nil
}

// clearSnapshot drops the data tables and metadata of the previous snapshot.
func clearSnapshot(ctx context.Context, txn *sql.Tx) error {
	rows, err := txn.QueryContext(ctx, `SELECT position FROM minisql_tables`)
	if err != nil {
		return errors.Wrap(err, "list snapshot tables")
	}
	var positions []int
	for rows.Next() {
		var pos int
		if err := rows.Scan(&pos); err != nil {
			rows.Close()
			return err
		}
		positions = append(positions, pos)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, pos := range positions {
		if _, err := txn.ExecContext(ctx, "DROP TABLE IF EXISTS "+dataTable(pos)); err != nil {
			return errors.Wrapf(err, "drop table %d", pos)
		}
	}
	for _, meta := range []string{"minisql_snapshot", "minisql_tables", "minisql_columns"} {
		if _, err := txn.ExecContext(ctx, "DELETE FROM "+meta); err != nil {
			return errors.Wrapf(err, "clear %s", meta)
		}
	}
	return nil
}

func saveTable(ctx context.Context, txn *sql.Tx, pos int, t table) error {
	if _, err := txn.ExecContext(ctx, `INSERT INTO minisql_tables (name, position) VALUES (?, ?)`, t.name, pos); err != nil {
		return err
	}

	defs := []string{"seq INTEGER PRIMARY KEY"}
	cols := make([]string, len(t.schema))
	qms := make([]string, len(t.schema))
	for i, col := range t.schema {
		var dflt interface{}
		if col.Default != nil {
			dflt = types.Native(col.Default)
		}
		_, err := txn.ExecContext(ctx,
			`INSERT INTO minisql_columns (table_name, position, name, type, dflt) VALUES (?, ?, ?, ?, ?)`,
			t.name, i, col.Name, col.Type.String(), dflt)
		if err != nil {
			return err
		}
		cols[i] = fmt.Sprintf("c%d", i)
		qms[i] = "?"
		defs = append(defs, fmt.Sprintf("c%d %s NOT NULL", i, sqliteType(col.Type)))
	}

	if _, err := txn.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", dataTable(pos), strings.Join(defs, ", "))); err != nil {
		return err
	}

	insert, err := txn.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (seq, %s) VALUES (?, %s)",
		dataTable(pos), strings.Join(cols, ", "), strings.Join(qms, ", ")))
	if err != nil {
		return err
	}
	defer insert.Close()

	args := make([]interface{}, len(t.schema)+1)
	for seq, row := range t.rows {
		args[0] = seq
		for i, v := range row {
			args[i+1] = types.Native(v)
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return errors.Wrapf(err, "row %d", seq+1)
		}
	}
	return nil
}

// Load restores the stored snapshot into cat. Nothing is defined in cat
// unless the whole snapshot reads back and its checksum matches.
func (s *Store) Load(ctx context.Context, cat *catalog.Catalog) (*Snapshot, error) {
	snap, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}

	tables, err := s.readTables(ctx)
	if err != nil {
		return nil, err
	}
	if sum := checksum(tables); sum != snap.Checksum {
		return nil, errors.Wrapf(ErrChecksum, "snapshot %s: recorded %s, computed %s", snap.ID, snap.Checksum, sum)
	}

	for _, t := range tables {
		if _, err := cat.Lookup(t.name); err == nil {
			return nil, errors.Wrapf(catalog.ErrDuplicateTable, "restore table %s", t.name)
		}
	}
	for _, t := range tables {
		if err := cat.Define(t.name, t.schema); err != nil {
			return nil, err
		}
		tbl, err := cat.Table(t.name)
		if err != nil {
			return nil, err
		}
		if err := tbl.AppendAll(t.rows); err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"snapshot": snap.ID,
		"tables":   snap.Tables,
		"rows":     snap.Rows,
	}).Debug("snapshot loaded")
	return snap, nil
}

func (s *Store) latest(ctx context.Context) (*Snapshot, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'minisql_snapshot'`).Scan(&exists)
	if err != nil {
		return nil, errors.Wrap(err, "inspect snapshot file")
	}
	if exists == 0 {
		return nil, errors.Wrapf(ErrNoSnapshot, "%s", s.path)
	}

	var (
		snap    Snapshot
		created string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, created_at, tables, rows, checksum FROM minisql_snapshot`).
		Scan(&snap.ID, &created, &snap.Tables, &snap.Rows, &snap.Checksum)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNoSnapshot, "%s", s.path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot")
	}
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, errors.Wrap(err, "read snapshot time")
	}
	return &snap, nil
}

func (s *Store) readTables(ctx context.Context) ([]table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, position FROM minisql_tables ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, "read tables")
	}
	var (
		tables    []table
		positions []int
	)
	for rows.Next() {
		var (
			t   table
			pos int
		)
		if err := rows.Scan(&t.name, &pos); err != nil {
			rows.Close()
			return nil, err
		}
		tables = append(tables, t)
		positions = append(positions, pos)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		if tables[i].schema, err = s.readSchema(ctx, tables[i].name); err != nil {
			return nil, errors.Wrapf(err, "read columns of %s", tables[i].name)
		}
		if tables[i].rows, err = s.readRows(ctx, positions[i], tables[i].schema); err != nil {
			return nil, errors.Wrapf(err, "read rows of %s", tables[i].name)
		}
	}
	return tables, nil
}

func (s *Store) readSchema(ctx context.Context, name string) (types.Schema, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type, dflt FROM minisql_columns WHERE table_name = ? ORDER BY position`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schema types.Schema
	for rows.Next() {
		var (
			colName, typName string
			dflt             interface{}
		)
		if err := rows.Scan(&colName, &typName, &dflt); err != nil {
			return nil, err
		}
		typ, err := types.ParseColumnType(typName)
		if err != nil {
			return nil, err
		}
		col := types.Column{Name: colName, Type: typ}
		if dflt != nil {
			if col.Default, err = types.Coerce(dflt, typ); err != nil {
				return nil, errors.Wrapf(err, "default of column %s", colName)
			}
		}
		schema = append(schema, col)
	}
	return schema, rows.Err()
}

func (s *Store) readRows(ctx context.Context, pos int, schema types.Schema) ([]types.Row, error) {
	cols := make([]string, len(schema))
	for i := range schema {
		cols[i] = fmt.Sprintf("c%d", i)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY seq", strings.Join(cols, ", "), dataTable(pos)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Row
	vals := make([]interface{}, len(schema))
	ptrs := make([]interface{}, len(schema))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(types.Row, len(schema))
		for i, col := range schema {
			v, err := types.Coerce(vals[i], col.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %s", len(out)+1, col.Name)
			}
			row[i] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func sqliteType(t types.ColumnType) string {
	switch t {
	case types.IntType, types.BoolType:
		return "INTEGER"
	case types.FloatType:
		return "REAL"
	case types.TextType:
		return "TEXT"
	default:
		panic("database: unhandled column type " + t.String())
	}
}

// dataTable is the name of the SQLite table holding the rows of the table at
// position pos. SQLite folds identifier case, so catalog names cannot be used.
func dataTable(pos int) string {
	return fmt.Sprintf("data_%d", pos)
}

// QuoteIdent quotes s as a SQLite identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin-cantwell/minisql/internal/ast"
	"github.com/kevin-cantwell/minisql/internal/catalog"
	"github.com/kevin-cantwell/minisql/internal/source"
	"github.com/kevin-cantwell/minisql/internal/types"
)

// --- test helpers ---

func mustExec(t *testing.T, e *Engine, queries ...string) *Result {
	t.Helper()
	var res *Result
	for _, q := range queries {
		var err error
		res, err = e.Exec(q)
		require.NoError(t, err, q)
	}
	return res
}

func usersEngine(t *testing.T) *Engine {
	t.Helper()
	e := New()
	mustExec(t, e,
		"CREATE TABLE users (id INT, name TEXT, active BOOLEAN);",
		"INSERT INTO users VALUES (1, 'Alice', TRUE);",
		"INSERT INTO users VALUES (2, 'Bob', FALSE);",
	)
	return e
}

func rowCount(t *testing.T, e *Engine, table string) int {
	t.Helper()
	tbl, err := e.Catalog().Table(table)
	require.NoError(t, err)
	return tbl.Len()
}

func execErr(t *testing.T, err error) *ExecError {
	t.Helper()
	require.Error(t, err)
	var ee *ExecError
	require.True(t, errors.As(err, &ee), "got %T: %v", err, err)
	return ee
}

// --- tests ---

func TestUsersExample(t *testing.T) {
	e := usersEngine(t)

	res := mustExec(t, e, "SELECT name FROM users;")
	assert.Equal(t, Selected, res.Kind)
	assert.Equal(t, types.Schema{{Name: "name", Type: types.TextType}}, res.Columns)
	assert.Equal(t, []types.Row{{types.Text("Alice")}, {types.Text("Bob")}}, res.Rows)

	res = mustExec(t, e, "SELECT * FROM users;")
	assert.Equal(t, []string{"id", "name", "active"}, res.Columns.Names())
	assert.Equal(t, []types.Row{
		{types.Int(1), types.Text("Alice"), types.Bool(true)},
		{types.Int(2), types.Text("Bob"), types.Bool(false)},
	}, res.Rows)
}

func TestCreateTable(t *testing.T) {
	e := New()
	res := mustExec(t, e, "CREATE TABLE m (i INTEGER, f DOUBLE, s VARCHAR, b BOOL);")
	assert.Equal(t, Created, res.Kind)
	assert.Equal(t, "m", res.Table)
	assert.Equal(t, "CREATE TABLE m", res.String())

	schema, err := e.Catalog().Lookup("m")
	require.NoError(t, err)
	assert.Equal(t, types.Schema{
		{Name: "i", Type: types.IntType},
		{Name: "f", Type: types.FloatType},
		{Name: "s", Type: types.TextType},
		{Name: "b", Type: types.BoolType},
	}, schema)
}

func TestCreateTableErrors(t *testing.T) {
	e := usersEngine(t)

	_, err := e.Exec("CREATE TABLE users (x FLOAT);")
	ee := execErr(t, err)
	assert.Equal(t, TableExists, ee.Kind)
	assert.True(t, errors.Is(err, ErrTableExists))
	assert.True(t, errors.Is(err, catalog.ErrDuplicateTable))
	assert.Equal(t, "table users already exists", err.Error())
	assert.Equal(t, 2, rowCount(t, e, "users"), "existing table is untouched")

	_, err = e.Exec("CREATE TABLE t (a INT, b TEXT, a FLOAT);")
	ee = execErr(t, err)
	assert.Equal(t, DuplicateColumn, ee.Kind)
	assert.Equal(t, "a", ee.Column)
	_, err = e.Catalog().Lookup("t")
	assert.True(t, errors.Is(err, catalog.ErrUnknownTable), "failed CREATE defines nothing")

	// Column names are case-sensitive, so these are distinct.
	mustExec(t, e, "CREATE TABLE t (a INT, A INT);")
}

func TestCreateTableWithoutColumns(t *testing.T) {
	_, err := New().Execute(&ast.CreateTableStatement{Name: "t"})
	assert.True(t, errors.Is(err, ErrColumnCountMismatch))
}

func TestInsert(t *testing.T) {
	e := usersEngine(t)
	res := mustExec(t, e, "INSERT INTO users VALUES (3, 'Cy', TRUE), (4, 'Di', FALSE);")
	assert.Equal(t, Inserted, res.Kind)
	assert.Equal(t, 2, res.RowsAffected)
	assert.Equal(t, "INSERT 2 rows into users", res.String())
	assert.Equal(t, 4, rowCount(t, e, "users"))
}

func TestInsertColumnList(t *testing.T) {
	e := usersEngine(t)
	mustExec(t, e, "INSERT INTO users (active, name, id) VALUES (TRUE, 'Cy', 3);")

	res := mustExec(t, e, "SELECT * FROM users;")
	assert.Equal(t, types.Row{types.Int(3), types.Text("Cy"), types.Bool(true)}, res.Rows[2])
}

func TestInsertDefaults(t *testing.T) {
	e := New()
	mustExec(t, e,
		"CREATE TABLE t (id INT, label TEXT DEFAULT 'none', score FLOAT DEFAULT 0.5);",
		"INSERT INTO t VALUES (1);",
		"INSERT INTO t VALUES (2, 'x'), (3, 'y', 2.0);",
		"INSERT INTO t (score, id) VALUES (9.0, 4);",
	)

	res := mustExec(t, e, "SELECT * FROM t;")
	assert.Equal(t, []types.Row{
		{types.Int(1), types.Text("none"), types.Float(0.5)},
		{types.Int(2), types.Text("x"), types.Float(0.5)},
		{types.Int(3), types.Text("y"), types.Float(2.0)},
		{types.Int(4), types.Text("none"), types.Float(9.0)},
	}, res.Rows)

	_, err := e.Exec("INSERT INTO t (label) VALUES ('z');")
	ee := execErr(t, err)
	assert.Equal(t, ColumnCountMismatch, ee.Kind)
	assert.Equal(t, "id", ee.Column)
	assert.Equal(t, `table t: expected 3 values, got 1 (column "id" has no default)`, err.Error())
	assert.Equal(t, 4, rowCount(t, e, "t"))
}

func TestInsertDefaultsOnlyFillTrailingColumns(t *testing.T) {
	e := New()
	mustExec(t, e, "CREATE TABLE t (a INT DEFAULT 1, b INT);")

	_, err := e.Exec("INSERT INTO t VALUES (5);")
	ee := execErr(t, err)
	assert.Equal(t, ColumnCountMismatch, ee.Kind)
	assert.Equal(t, "b", ee.Column)

	mustExec(t, e, "INSERT INTO t (b) VALUES (7);")
	res := mustExec(t, e, "SELECT a, b FROM t;")
	assert.Equal(t, []types.Row{{types.Int(1), types.Int(7)}}, res.Rows)
}

func TestCreateTableDefaultTypeMismatch(t *testing.T) {
	e := New()
	_, err := e.Exec("CREATE TABLE bad (f FLOAT DEFAULT 1);")
	ee := execErr(t, err)
	assert.Equal(t, TypeMismatch, ee.Kind)
	assert.Equal(t, "f", ee.Column)
	assert.Equal(t, "FLOAT", ee.Expected)
	assert.Equal(t, "INT 1 at line 1 position 35", ee.Actual)
	assert.Equal(t, 0, e.Catalog().Len())

	mustExec(t, e, "CREATE TABLE good (f FLOAT DEFAULT 1.0);")
	schema, err := e.Catalog().Lookup("good")
	require.NoError(t, err)
	assert.Equal(t, types.Float(1), schema[0].Default)
}

func TestInsertErrors(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		kind     Kind
		sentinel error
		column   string
		expected string
		actual   string
	}{
		{
			name:     "too few values",
			query:    "INSERT INTO users VALUES (3, 'Cy');",
			kind:     ColumnCountMismatch,
			sentinel: ErrColumnCountMismatch,
			column:   "active",
			expected: "3",
			actual:   "2",
		},
		{
			name:     "too many values",
			query:    "INSERT INTO users VALUES (3, 'Cy', TRUE, 4);",
			kind:     ColumnCountMismatch,
			sentinel: ErrColumnCountMismatch,
			expected: "3",
			actual:   "4",
		},
		{
			name:     "text into int",
			query:    "INSERT INTO users VALUES ('x', 'Cy', TRUE);",
			kind:     TypeMismatch,
			sentinel: ErrTypeMismatch,
			column:   "id",
			expected: "INT",
			actual:   "TEXT 'x' at line 1 position 27",
		},
		{
			name:     "int into boolean",
			query:    "INSERT INTO users VALUES (3, 'Cy', 1);",
			kind:     TypeMismatch,
			sentinel: ErrTypeMismatch,
			column:   "active",
			expected: "BOOLEAN",
			actual:   "INT 1 at line 1 position 36",
		},
		{
			name:     "float into int",
			query:    "INSERT INTO users VALUES (3.0, 'Cy', TRUE);",
			kind:     TypeMismatch,
			sentinel: ErrTypeMismatch,
			column:   "id",
			expected: "INT",
			actual:   "FLOAT 3.0 at line 1 position 27",
		},
		{
			name:     "unknown table",
			query:    "INSERT INTO people VALUES (1);",
			kind:     UnknownTable,
			sentinel: ErrUnknownTable,
		},
		{
			name:     "unknown column in list",
			query:    "INSERT INTO users (id, nick, active) VALUES (3, 'Cy', TRUE);",
			kind:     UnknownColumn,
			sentinel: ErrUnknownColumn,
			column:   "nick",
		},
		{
			name:     "repeated column in list",
			query:    "INSERT INTO users (id, id, active) VALUES (3, 4, TRUE);",
			kind:     DuplicateColumn,
			sentinel: ErrDuplicateColumn,
			column:   "id",
		},
		{
			name:     "column list leaves a column out",
			query:    "INSERT INTO users (id, name) VALUES (3, 'Cy');",
			kind:     ColumnCountMismatch,
			sentinel: ErrColumnCountMismatch,
			column:   "active",
			expected: "3",
			actual:   "2",
		},
		{
			name:     "tuple shorter than column list",
			query:    "INSERT INTO users (id, name, active) VALUES (3, 'Cy');",
			kind:     ColumnCountMismatch,
			sentinel: ErrColumnCountMismatch,
			expected: "3",
			actual:   "2",
		},
		{
			name:     "one bad tuple among good ones",
			query:    "INSERT INTO users VALUES (3, 'Cy', TRUE), (4, 'Di', 'no'), (5, 'Ed', FALSE);",
			kind:     TypeMismatch,
			sentinel: ErrTypeMismatch,
			column:   "active",
			expected: "BOOLEAN",
			actual:   "TEXT 'no' at line 1 position 53",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := usersEngine(t)
			res, err := e.Exec(tt.query)
			assert.Nil(t, res)

			ee := execErr(t, err)
			assert.Equal(t, tt.kind, ee.Kind)
			assert.True(t, errors.Is(err, tt.sentinel))
			assert.Equal(t, tt.column, ee.Column)
			assert.Equal(t, tt.expected, ee.Expected)
			assert.Equal(t, tt.actual, ee.Actual)

			if tt.kind != UnknownTable {
				assert.Equal(t, 2, rowCount(t, e, "users"), "failed INSERT appends nothing")
			}
		})
	}
}

func TestNoNumericPromotion(t *testing.T) {
	e := New()
	mustExec(t, e, "CREATE TABLE m (f FLOAT);")

	_, err := e.Exec("INSERT INTO m VALUES (1);")
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	assert.Equal(t, `column "f" of table m: expected FLOAT, got INT 1 at line 1 position 23`, err.Error())

	mustExec(t, e, "INSERT INTO m VALUES (1.0);")
	res := mustExec(t, e, "SELECT f FROM m;")
	assert.Equal(t, "1.0", res.Rows[0][0].String())
}

func TestSelect(t *testing.T) {
	e := usersEngine(t)

	res := mustExec(t, e, "SELECT active, id, active FROM users;")
	assert.Equal(t, []string{"active", "id", "active"}, res.Columns.Names())
	assert.Equal(t, []types.Row{
		{types.Bool(true), types.Int(1), types.Bool(true)},
		{types.Bool(false), types.Int(2), types.Bool(false)},
	}, res.Rows)
	assert.Equal(t, "SELECT 2 rows from users", res.String())
}

func TestSelectEmptyTable(t *testing.T) {
	e := New()
	mustExec(t, e, "CREATE TABLE empty (x TEXT);")

	res := mustExec(t, e, "SELECT * FROM empty;")
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
	assert.Equal(t, []string{"x"}, res.Columns.Names())
}

func TestSelectOnlyOwnRows(t *testing.T) {
	e := usersEngine(t)
	mustExec(t, e,
		"CREATE TABLE orders (id INT, item TEXT);",
		"INSERT INTO orders VALUES (10, 'book'), (11, 'pen'), (12, 'ink');",
		"CREATE TABLE idle (id INT);",
	)

	res := mustExec(t, e, "SELECT * FROM users;")
	assert.Equal(t, []types.Row{
		{types.Int(1), types.Text("Alice"), types.Bool(true)},
		{types.Int(2), types.Text("Bob"), types.Bool(false)},
	}, res.Rows)

	res = mustExec(t, e, "SELECT * FROM orders;")
	assert.Equal(t, []types.Row{
		{types.Int(10), types.Text("book")},
		{types.Int(11), types.Text("pen")},
		{types.Int(12), types.Text("ink")},
	}, res.Rows)

	res = mustExec(t, e, "SELECT id FROM idle;")
	assert.Empty(t, res.Rows)
}

func TestSelectErrors(t *testing.T) {
	e := usersEngine(t)

	_, err := e.Exec("SELECT * FROM Users;")
	ee := execErr(t, err)
	assert.Equal(t, UnknownTable, ee.Kind)
	assert.True(t, errors.Is(err, catalog.ErrUnknownTable))

	_, err = e.Exec("SELECT id, email FROM users;")
	ee = execErr(t, err)
	assert.Equal(t, UnknownColumn, ee.Kind)
	assert.Equal(t, "email", ee.Column)
	assert.Equal(t, `column "email" does not exist in table users`, err.Error())
}

func TestSelectDoesNotAlias(t *testing.T) {
	e := usersEngine(t)
	res := mustExec(t, e, "SELECT * FROM users;")
	res.Rows[0][1] = types.Text("changed")

	res = mustExec(t, e, "SELECT name FROM users;")
	assert.Equal(t, types.Text("Alice"), res.Rows[0][0])
}

func TestExecSyntaxErrors(t *testing.T) {
	e := New()

	_, err := e.Exec("CREATE TABLE users (id INT id TEXT);")
	var parseErr *ast.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, []ast.TokenType{ast.COMMA, ast.RPAREN}, parseErr.Expected)
	assert.Equal(t, "id", parseErr.Found.Raw)
	assert.Equal(t, 0, e.Catalog().Len())

	_, err = e.Exec("SELECT * FROM t = 1;")
	var lexErr *ast.LexError
	assert.True(t, errors.As(err, &lexErr))
}

func TestExecScript(t *testing.T) {
	e := New()
	results, err := e.ExecScript(`
		CREATE TABLE t (n INT);
		INSERT INTO t VALUES (1), (2);
		SELECT n FROM t;`)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Len(t, results[2].Rows, 2)

	results, err = e.ExecScript(`
		INSERT INTO t VALUES (3);
		INSERT INTO t VALUES ('four');
		INSERT INTO t VALUES (5);`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	assert.Contains(t, err.Error(), "statement 2")
	assert.Len(t, results, 1)
	assert.Equal(t, 3, rowCount(t, e, "t"), "statements after the failure do not run")
}

func TestLoad(t *testing.T) {
	e := New()
	mustExec(t, e, "CREATE TABLE events (id INT, score FLOAT, ok BOOLEAN, tag TEXT);")

	src := source.NewReaderSource("events", strings.NewReader(
		`{"id": 1, "score": 2, "ok": true, "tag": "a", "extra": null}
{"id": 2.0, "score": 0.5, "ok": false, "tag": "b"}
`))
	n, err := e.Load(context.Background(), "events", src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res := mustExec(t, e, "SELECT * FROM events;")
	assert.Equal(t, []types.Row{
		{types.Int(1), types.Float(2), types.Bool(true), types.Text("a")},
		{types.Int(2), types.Float(0.5), types.Bool(false), types.Text("b")},
	}, res.Rows)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,id,active\nAlice,1,true\nBob,2,FALSE\n"), 0o644))
	src, err := source.NewFileSource("users", path)
	require.NoError(t, err)
	defer src.Close()

	e := New()
	mustExec(t, e, "CREATE TABLE users (id INT, name TEXT, active BOOLEAN);")
	n, err := e.Load(context.Background(), "users", src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res := mustExec(t, e, "SELECT name, active FROM users;")
	assert.Equal(t, []types.Row{
		{types.Text("Alice"), types.Bool(true)},
		{types.Text("Bob"), types.Bool(false)},
	}, res.Rows)
}

func TestLoadFillsDefaults(t *testing.T) {
	e := New()
	mustExec(t, e, "CREATE TABLE t (id INT, tag TEXT DEFAULT 'new');")

	src := source.NewReaderSource("t", strings.NewReader("{\"id\": 1}\n{\"id\": 2, \"tag\": \"old\"}\n"))
	defer src.Close()
	n, err := e.Load(context.Background(), "t", src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res := mustExec(t, e, "SELECT tag FROM t;")
	assert.Equal(t, []types.Row{{types.Text("new")}, {types.Text("old")}}, res.Rows)
}

func TestLoadIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sentinel error
	}{
		{name: "bad value", input: "{\"id\": 3}\n{\"id\": \"x\"}\n", sentinel: ErrTypeMismatch},
		{name: "missing column", input: "{\"id\": 3}\n{\"other\": 4}\n", sentinel: ErrColumnCountMismatch},
		{name: "null value", input: "{\"id\": null}\n", sentinel: types.ErrCoerce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New()
			mustExec(t, e, "CREATE TABLE t (id INT);", "INSERT INTO t VALUES (1);")

			src := source.NewReaderSource("t", strings.NewReader(tt.input))
			defer src.Close()
			_, err := e.Load(context.Background(), "t", src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
			assert.Equal(t, 1, rowCount(t, e, "t"))
		})
	}
}

func TestLoadSourceError(t *testing.T) {
	e := New()
	mustExec(t, e, "CREATE TABLE t (id INT);")

	src := source.NewReaderSource("t", strings.NewReader("{\"id\": 1}\n{oops\n"))
	_, err := e.Load(context.Background(), "t", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 0, rowCount(t, e, "t"))
}

func TestLoadUnknownTable(t *testing.T) {
	src := source.NewReaderSource("t", strings.NewReader(""))
	_, err := New().Load(context.Background(), "t", src)
	assert.True(t, errors.Is(err, ErrUnknownTable))
}

func TestLoadCanceled(t *testing.T) {
	e := New()
	mustExec(t, e, "CREATE TABLE t (id INT);")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A reader that never returns keeps the source open.
	r, w := io.Pipe()
	defer w.Close()
	src := source.NewReaderSource("t", r)
	defer src.Close()

	_, err := e.Load(ctx, "t", src)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, rowCount(t, e, "t"))
}

func TestConcurrentStatements(t *testing.T) {
	e := New()
	mustExec(t, e, "CREATE TABLE t (n INT);")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := e.Exec("INSERT INTO t VALUES (1);")
				assert.NoError(t, err)
				_, err = e.Exec("SELECT n FROM t;")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, rowCount(t, e, "t"))
}

func TestStatementLogging(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	e := New(WithLogger(logger))

	mustExec(t, e, "CREATE TABLE t (n INT);", "INSERT INTO t VALUES (1), (2);")
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "statement executed", entry.Message)
	assert.Equal(t, Inserted, entry.Data["kind"])
	assert.Equal(t, "t", entry.Data["table"])
	assert.Equal(t, 2, entry.Data["rows"])
	assert.Contains(t, entry.Data, "duration")

	_, err := e.Exec("SELECT * FROM nope;")
	require.Error(t, err)
	entry = hook.LastEntry()
	assert.Equal(t, "statement failed", entry.Message)
	assert.Equal(t, err, entry.Data[logrus.ErrorKey])
}

func TestWithCatalog(t *testing.T) {
	cat := catalog.New()
	require.NoError(t, cat.Define("pre", types.Schema{{Name: "x", Type: types.IntType}}))

	e := New(WithCatalog(cat))
	mustExec(t, e, "INSERT INTO pre VALUES (1);")
	assert.Same(t, cat, e.Catalog())
}

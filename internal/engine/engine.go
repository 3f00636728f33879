// Package engine executes parsed statements against a catalog.
package engine

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kevin-cantwell/minisql/internal/ast"
	"github.com/kevin-cantwell/minisql/internal/catalog"
	"github.com/kevin-cantwell/minisql/internal/storage"
)

// Engine runs statements one at a time over a catalog.
type Engine struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	log     logrus.FieldLogger
}

type Option func(*Engine)

// WithLogger sets the logger statements are reported to at debug level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithCatalog runs the engine over an existing catalog, e.g. one restored
// from a snapshot.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// New creates an Engine with an empty catalog and a discarding logger unless
// options say otherwise.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.catalog == nil {
		e.catalog = catalog.New()
	}
	if e.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e.log = l
	}
	return e
}

// Catalog returns the engine's catalog. It must not be used while statements
// are executing on another goroutine.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Exec lexes, parses and executes a single statement.
func (e *Engine) Exec(query string) (*Result, error) {
	stmt, err := ast.Parse(query)
	if err != nil {
		return nil, err
	}
	return e.Execute(stmt)
}

// ExecScript executes each ;-terminated statement of script in order and stops
// at the first error. The results of the statements that ran are returned
// along with it.
func (e *Engine) ExecScript(script string) ([]*Result, error) {
	stmts, err := ast.SplitStatements(script)
	if err != nil {
		return nil, err
	}
	results := make([]*Result, 0, len(stmts))
	for i, query := range stmts {
		res, err := e.Exec(query)
		if err != nil {
			return results, errors.Wrapf(err, "statement %d", i+1)
		}
		results = append(results, res)
	}
	return results, nil
}

// Execute runs a parsed statement. A failed statement leaves the catalog
// unchanged.
func (e *Engine) Execute(stmt ast.Statement) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	var (
		res *Result
		err error
	)
	switch s := stmt.(type) {
	case *ast.CreateTableStatement:
		res, err = e.createTable(s)
	case *ast.InsertStatement:
		res, err = e.insert(s)
	case *ast.SelectStatement:
		res, err = e.selectRows(s)
	default:
		panic(fmt.Sprintf("engine: unhandled statement %T", stmt))
	}

	log := e.log.WithField("duration", time.Since(start))
	if err != nil {
		log.WithError(err).Debug("statement failed")
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"kind":  res.Kind,
		"table": res.Table,
		"rows":  res.RowsAffected + len(res.Rows),
	}).Debug("statement executed")
	return res, nil
}

func (e *Engine) table(name string) (*storage.Table, error) {
	t, err := e.catalog.Table(name)
	if err != nil {
		return nil, &ExecError{Kind: UnknownTable, Table: name, Err: err}
	}
	return t, nil
}

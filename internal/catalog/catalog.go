// Package catalog maps table names to their schemas and storage.
package catalog

import (
	"github.com/pkg/errors"

	"github.com/kevin-cantwell/minisql/internal/storage"
	"github.com/kevin-cantwell/minisql/internal/types"
)

var (
	ErrDuplicateTable = errors.New("table already exists")
	ErrUnknownTable   = errors.New("table does not exist")
)

// Catalog is the set of defined tables. Table names are case-sensitive.
type Catalog struct {
	tables map[string]*storage.Table
	order  []string
}

func New() *Catalog {
	return &Catalog{tables: make(map[string]*storage.Table)}
}

// Define creates an empty table. The catalog is unchanged on error.
func (c *Catalog) Define(name string, schema types.Schema) error {
	if _, ok := c.tables[name]; ok {
		return errors.Wrapf(ErrDuplicateTable, "table %s", name)
	}
	c.tables[name] = storage.New(name, schema)
	c.order = append(c.order, name)
	return nil
}

// Lookup returns the schema of the named table.
func (c *Catalog) Lookup(name string) (types.Schema, error) {
	t, err := c.Table(name)
	if err != nil {
		return nil, err
	}
	return t.Schema(), nil
}

// Table returns the storage of the named table.
func (c *Catalog) Table(name string) (*storage.Table, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTable, "table %s", name)
	}
	return t, nil
}

// Tables returns every table in definition order.
func (c *Catalog) Tables() []*storage.Table {
	tables := make([]*storage.Table, len(c.order))
	for i, name := range c.order {
		tables[i] = c.tables[name]
	}
	return tables
}

func (c *Catalog) Len() int { return len(c.order) }

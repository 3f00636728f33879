package database

import (
	"encoding/hex"
	"fmt"
	"io"
	"slices"

	"github.com/zeebo/blake3"

	"github.com/kevin-cantwell/minisql/internal/catalog"
	"github.com/kevin-cantwell/minisql/internal/types"
)

// table is a catalog table detached from storage.
type table struct {
	name   string
	schema types.Schema
	rows   []types.Row
}

func tablesOf(cat *catalog.Catalog) []table {
	var tables []table
	for _, t := range cat.Tables() {
		tables = append(tables, table{
			name:   t.Name(),
			schema: t.Schema(),
			rows:   slices.Collect(t.Scan()),
		})
	}
	return tables
}

// checksum is the hex BLAKE3 hash of the tables in order: each name, column
// and value is written length-prefixed so no two catalogs hash alike.
func checksum(tables []table) string {
	h := blake3.New()
	for _, t := range tables {
		field(h, "table", t.name)
		for _, col := range t.schema {
			field(h, "column", col.Name+" "+col.Type.String())
			if col.Default != nil {
				field(h, "default", types.Literal(col.Default))
			}
		}
		for _, row := range t.rows {
			for _, v := range row {
				field(h, v.Type().String(), v.String())
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func field(w io.Writer, kind, s string) {
	fmt.Fprintf(w, "%s:%d:%s;", kind, len(s), s)
}

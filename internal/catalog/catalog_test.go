package catalog

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin-cantwell/minisql/internal/types"
)

func TestDefineAndLookup(t *testing.T) {
	c := New()
	schema := types.Schema{{Name: "id", Type: types.IntType}, {Name: "name", Type: types.TextType}}

	require.NoError(t, c.Define("users", schema))
	assert.Equal(t, 1, c.Len())

	got, err := c.Lookup("users")
	require.NoError(t, err)
	assert.Equal(t, schema, got)

	tbl, err := c.Table("users")
	require.NoError(t, err)
	assert.Equal(t, "users", tbl.Name())
	assert.Equal(t, 0, tbl.Len())
}

func TestDefineDuplicate(t *testing.T) {
	c := New()
	require.NoError(t, c.Define("users", types.Schema{{Name: "id", Type: types.IntType}}))
	tbl, _ := c.Table("users")
	require.NoError(t, tbl.Append(types.Row{types.Int(1)}))

	err := c.Define("users", types.Schema{{Name: "other", Type: types.TextType}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateTable))

	// The original table is untouched.
	schema, err := c.Lookup("users")
	require.NoError(t, err)
	assert.Equal(t, "id", schema[0].Name)
	tbl, _ = c.Table("users")
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, 1, c.Len())
}

func TestUnknownTable(t *testing.T) {
	c := New()
	require.NoError(t, c.Define("users", types.Schema{{Name: "id", Type: types.IntType}}))

	_, err := c.Lookup("Users")
	assert.True(t, errors.Is(err, ErrUnknownTable), "names are case-sensitive")

	_, err = c.Table("orders")
	assert.True(t, errors.Is(err, ErrUnknownTable))
	assert.Contains(t, err.Error(), "orders")
}

func TestTablesInDefinitionOrder(t *testing.T) {
	c := New()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, c.Define(name, types.Schema{{Name: "x", Type: types.BoolType}}))
	}
	var names []string
	for _, tbl := range c.Tables() {
		names = append(names, tbl.Name())
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

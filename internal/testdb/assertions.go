package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TableAssertions checks the catalogue of a TestDB
type TableAssertions struct {
	t   testing.TB
	tdb *TestDB
}

// NewTableAssertions creates table assertion helpers
func NewTableAssertions(t testing.TB, tdb *TestDB) *TableAssertions {
	return &TableAssertions{t: t, tdb: tdb}
}

// AssertTableExists asserts that a table exists
func (ta *TableAssertions) AssertTableExists(table string) {
	ta.t.Helper()
	exists, err := ta.tdb.TableExists(table)
	require.NoError(ta.t, err)
	assert.True(ta.t, exists, "table %s does not exist", table)
}

// AssertColumnType asserts that a column has the expected information_schema type
func (ta *TableAssertions) AssertColumnType(table, column, expected string) {
	ta.t.Helper()
	actual, err := ta.tdb.ColumnType(table, column)
	require.NoError(ta.t, err)
	assert.Equal(ta.t, expected, actual, "column %s.%s", table, column)
}

// AssertIndexExists asserts that an index exists
func (ta *TableAssertions) AssertIndexExists(index string) {
	ta.t.Helper()
	exists, err := ta.tdb.IndexExists(index)
	require.NoError(ta.t, err)
	assert.True(ta.t, exists, "index %s does not exist", index)
}

// AssertConstraintExists asserts that a constraint exists
func (ta *TableAssertions) AssertConstraintExists(table, constraint string) {
	ta.t.Helper()
	exists, err := ta.tdb.ConstraintExists(table, constraint)
	require.NoError(ta.t, err)
	assert.True(ta.t, exists, "constraint %s on table %s does not exist", constraint, table)
}

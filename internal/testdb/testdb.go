// Package testdb provisions scratch PostgreSQL databases with the recipe
// schema for integration tests. Tests are skipped unless URLEnv is set.
package testdb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/foodgram/internal/models"
	"github.com/eleven-am/foodgram/internal/schema"
)

// URLEnv names a server the tests may create databases on
const URLEnv = "FOODGRAM_TEST_DATABASE_URL"

// TestDB provides a scratch database connection
type TestDB struct {
	DB   *sqlx.DB
	Name string
	t    testing.TB
}

// New creates an empty scratch database, dropped when the test ends
func New(t testing.TB) *TestDB {
	t.Helper()

	base := os.Getenv(URLEnv)
	if base == "" {
		t.Skipf("%s not set", URLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	name := fmt.Sprintf("foodgram_test_%d", time.Now().UnixNano())
	db, cleanup, err := schema.NewTempDBManager(base).CreateTempDB(ctx, name)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(cleanup)

	return &TestDB{DB: sqlx.NewDb(db, "postgres"), Name: name, t: t}
}

// NewMigrated creates a scratch database holding the full recipe schema
func NewMigrated(t testing.TB) *TestDB {
	t.Helper()

	tdb := New(t)
	target, err := schema.NewGenerator().FromModels(models.All()...)
	if err != nil {
		t.Fatalf("failed to generate schema: %v", err)
	}
	statements, err := target.Statements()
	if err != nil {
		t.Fatalf("failed to render schema: %v", err)
	}
	if err := schema.Apply(context.Background(), tdb.DB, statements); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	return tdb
}

// TableExists checks information_schema for a public table
func (tdb *TestDB) TableExists(table string) (bool, error) {
	var exists bool
	err := tdb.DB.Get(&exists, `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1)`, table)
	return exists, err
}

// ColumnType returns the data_type of a column
func (tdb *TestDB) ColumnType(table, column string) (string, error) {
	var dataType string
	err := tdb.DB.Get(&dataType, `SELECT data_type FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2`, table, column)
	return dataType, err
}

// IndexExists checks pg_indexes for a public index
func (tdb *TestDB) IndexExists(index string) (bool, error) {
	var exists bool
	err := tdb.DB.Get(&exists, `SELECT EXISTS (
		SELECT 1 FROM pg_indexes WHERE schemaname = 'public' AND indexname = $1)`, index)
	return exists, err
}

// ConstraintExists checks information_schema for a table constraint
func (tdb *TestDB) ConstraintExists(table, constraint string) (bool, error) {
	var exists bool
	err := tdb.DB.Get(&exists, `SELECT EXISTS (
		SELECT 1 FROM information_schema.table_constraints
		WHERE table_schema = 'public' AND table_name = $1 AND constraint_name = $2)`, table, constraint)
	return exists, err
}

package orm

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// DBExecutor represents an interface that can execute database operations.
// It is satisfied by both *sqlx.DB and *sqlx.Tx, allowing repositories
// to work with either regular connections or transactions.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

var (
	_ DBExecutor = (*sqlx.DB)(nil)
	_ DBExecutor = (*sqlx.Tx)(nil)
)

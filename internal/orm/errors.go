package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Common errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidStruct    = errors.New("invalid struct type")
	ErrNoPrimaryKey     = errors.New("no primary key defined")
	ErrDuplicateKey     = errors.New("duplicate key violation")
	ErrForeignKey       = errors.New("foreign key violation")
	ErrCheckConstraint  = errors.New("check constraint violation")
	ErrNotNull          = errors.New("not null constraint violation")
	ErrConnectionFailed = errors.New("database connection failed")
	ErrTimeout          = errors.New("operation timeout")
	ErrCanceled         = errors.New("operation canceled")
)

// PostgreSQL SQLSTATE codes the ORM classifies.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// Error provides detailed error information
type Error struct {
	Op         string        // Operation that failed
	Table      string        // Table involved
	Err        error         // Underlying error
	Query      string        // SQL query (if applicable)
	Args       []interface{} // Query arguments (if applicable)
	Constraint string        // Constraint name (if applicable)
	Column     string        // Column name (if applicable)
	Retryable  bool          // Whether the operation can be retried
}

func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("orm: %s", e.Op)}

	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}

	if e.Column != "" {
		parts = append(parts, fmt.Sprintf("column=%s", e.Column))
	}

	if e.Constraint != "" {
		parts = append(parts, fmt.Sprintf("constraint=%s", e.Constraint))
	}

	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ParsePostgreSQLError converts driver errors into *Error values whose Err is
// one of the package sentinels when the failure is recognised.
func ParsePostgreSQLError(err error, op, table string) error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Op: op, Table: table, Err: ErrNotFound}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		ormErr := &Error{
			Op:         op,
			Table:      table,
			Constraint: pqErr.Constraint,
			Column:     pqErr.Column,
		}

		switch string(pqErr.Code) {
		case codeUniqueViolation:
			ormErr.Err = ErrDuplicateKey
		case codeForeignKeyViolation:
			ormErr.Err = ErrForeignKey
		case codeCheckViolation:
			ormErr.Err = ErrCheckConstraint
		case codeNotNullViolation:
			ormErr.Err = ErrNotNull
		default:
			ormErr.Err = err
			ormErr.Retryable = pqErr.Code.Class() == "40" || pqErr.Code.Class() == "08"
		}

		return ormErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Op: op, Table: table, Err: ErrTimeout, Retryable: true}
	case errors.Is(err, context.Canceled):
		return &Error{Op: op, Table: table, Err: ErrCanceled}
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "broken pipe") {
		return &Error{Op: op, Table: table, Err: ErrConnectionFailed, Retryable: true}
	}

	return &Error{Op: op, Table: table, Err: err}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var ormErr *Error
	if errors.As(err, &ormErr) {
		return ormErr.Retryable
	}
	return false
}

// GetConstraintName extracts the constraint name from an error
func GetConstraintName(err error) string {
	var ormErr *Error
	if errors.As(err, &ormErr) {
		return ormErr.Constraint
	}
	return ""
}

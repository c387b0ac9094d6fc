package orm

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// Column represents a type-safe database column reference
type Column[T any] struct {
	Name  string
	Table string
}

// String returns the full column reference for SQL
func (c Column[T]) String() string {
	if c.Table != "" {
		return fmt.Sprintf("%s.%s", c.Table, c.Name)
	}
	return c.Name
}

// Eq creates an equality condition
func (c Column[T]) Eq(value T) Condition {
	return Condition{squirrel.Eq{c.String(): value}}
}

// Any matches any element of values, bound as a single array parameter
func (c Column[T]) Any(values []T) Condition {
	return Condition{squirrel.Expr(c.String()+" = ANY(?)", pq.Array(values))}
}

// EqColumn compares two columns, typically inside a correlated subquery
func (c Column[T]) EqColumn(other Column[T]) Condition {
	return Condition{squirrel.Expr(c.String() + " = " + other.String())}
}

// Asc creates an ascending order expression
func (c Column[T]) Asc() string {
	return c.String() + " ASC"
}

// Desc creates a descending order expression
func (c Column[T]) Desc() string {
	return c.String() + " DESC"
}

// StringColumn provides string-specific operations
type StringColumn struct {
	Column[string]
}

// ILike creates a case-insensitive LIKE condition (PostgreSQL)
func (c StringColumn) ILike(pattern string) Condition {
	return Condition{squirrel.ILike{c.String(): pattern}}
}

// IStartsWith matches values starting with prefix, ignoring case.
// Wildcards in prefix are matched literally.
func (c StringColumn) IStartsWith(prefix string) Condition {
	return c.ILike(EscapeLike(prefix) + "%")
}

// EscapeLike escapes LIKE metacharacters using PostgreSQL's default escape
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Condition wraps squirrel conditions for type safety
type Condition struct {
	condition squirrel.Sqlizer
}

// ToSqlizer returns the underlying squirrel condition
func (c Condition) ToSqlizer() squirrel.Sqlizer {
	return c.condition
}

// And combines multiple conditions with AND
func And(conditions ...Condition) Condition {
	sqlizers := make(squirrel.And, len(conditions))
	for i, c := range conditions {
		sqlizers[i] = c.condition
	}
	return Condition{sqlizers}
}

// Expr builds a raw SQL condition
func Expr(sql string, args ...interface{}) Condition {
	return Condition{squirrel.Expr(sql, args...)}
}

// Exists matches when the subquery returns at least one row. The subquery
// must use the default ? placeholders; the outer query rewrites them.
func Exists(subquery squirrel.SelectBuilder) Condition {
	return Condition{squirrel.Expr("EXISTS (?)", subquery)}
}

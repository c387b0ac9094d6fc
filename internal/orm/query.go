package orm

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
)

// Query provides a fluent interface for building database queries
type Query[T any] struct {
	repo *Repository[T]
	ctx  context.Context
	err  error

	limit       *uint64
	offset      *uint64
	orderBy     []string
	whereClause squirrel.And
	joins       []join
	distinct    bool
}

// Query creates a new query builder bound to ctx
func (r *Repository[T]) Query(ctx context.Context) *Query[T] {
	return &Query[T]{
		repo:        r,
		ctx:         ctx,
		whereClause: squirrel.And{},
	}
}

// Where adds a type-safe condition
func (q *Query[T]) Where(condition Condition) *Query[T] {
	if q.err != nil {
		return q
	}
	if condition.condition == nil {
		q.err = fmt.Errorf("empty condition")
		return q
	}
	q.whereClause = append(q.whereClause, condition.ToSqlizer())
	return q
}

// OrderBy adds an ORDER BY clause
func (q *Query[T]) OrderBy(expressions ...string) *Query[T] {
	q.orderBy = append(q.orderBy, expressions...)
	return q
}

// Limit sets the LIMIT clause
func (q *Query[T]) Limit(limit uint64) *Query[T] {
	q.limit = &limit
	return q
}

// Offset sets the OFFSET clause
func (q *Query[T]) Offset(offset uint64) *Query[T] {
	q.offset = &offset
	return q
}

// Distinct removes duplicate rows produced by joins
func (q *Query[T]) Distinct() *Query[T] {
	q.distinct = true
	return q
}

// InnerJoin adds an INNER JOIN
func (q *Query[T]) InnerJoin(table, condition string) *Query[T] {
	q.joins = append(q.joins, join{Type: InnerJoin, Table: table, Condition: condition})
	return q
}

// LeftJoin adds a LEFT JOIN
func (q *Query[T]) LeftJoin(table, condition string) *Query[T] {
	q.joins = append(q.joins, join{Type: LeftJoin, Table: table, Condition: condition})
	return q
}

func (q *Query[T]) applyFilters(builder squirrel.SelectBuilder) squirrel.SelectBuilder {
	for _, j := range q.joins {
		switch j.Type {
		case InnerJoin:
			builder = builder.InnerJoin(j.clause())
		case LeftJoin:
			builder = builder.LeftJoin(j.clause())
		}
	}

	if where := q.whereSqlizer(); where != nil {
		builder = builder.Where(where)
	}

	return builder
}

// whereSqlizer avoids wrapping a single condition in parentheses
func (q *Query[T]) whereSqlizer() squirrel.Sqlizer {
	switch len(q.whereClause) {
	case 0:
		return nil
	case 1:
		return q.whereClause[0]
	default:
		return q.whereClause
	}
}

// buildSelect constructs the SELECT for Find and First
func (q *Query[T]) buildSelect() squirrel.SelectBuilder {
	builder := squirrel.Select(q.repo.selectColumns...).
		From(q.repo.tableName).
		PlaceholderFormat(squirrel.Dollar)

	if q.distinct {
		builder = builder.Distinct()
	}

	builder = q.applyFilters(builder)

	if len(q.orderBy) > 0 {
		builder = builder.OrderBy(q.orderBy...)
	}
	if q.limit != nil {
		builder = builder.Limit(*q.limit)
	}
	if q.offset != nil {
		builder = builder.Offset(*q.offset)
	}

	return builder
}

// ToSql renders the SELECT the query would run
func (q *Query[T]) ToSql() (string, []interface{}, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	return q.buildSelect().ToSql()
}

// Find executes the query and returns all matching records
func (q *Query[T]) Find() ([]T, error) {
	if q.err != nil {
		return nil, &Error{Op: "find", Table: q.repo.tableName, Err: q.err}
	}

	records := make([]T, 0)
	err := q.repo.executeQueryMiddleware(OpQuery, q.ctx, nil, q.buildSelect(), func(mctx *MiddlewareContext) error {
		builder, ok := mctx.QueryBuilder.(squirrel.SelectBuilder)
		if !ok {
			return &Error{Op: "find", Table: q.repo.tableName, Err: fmt.Errorf("unexpected query builder %T", mctx.QueryBuilder)}
		}

		query, args, err := builder.ToSql()
		if err != nil {
			return &Error{Op: "find", Table: q.repo.tableName, Err: fmt.Errorf("failed to build query: %w", err)}
		}
		mctx.Query, mctx.Args = query, args

		if err := q.repo.db.SelectContext(mctx.Context, &records, query, args...); err != nil {
			return ParsePostgreSQLError(err, "find", q.repo.tableName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// First executes the query and returns the first matching record
func (q *Query[T]) First() (*T, error) {
	q.Limit(1)
	records, err := q.Find()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, &Error{Op: "first", Table: q.repo.tableName, Err: ErrNotFound}
	}

	return &records[0], nil
}

// Count returns the number of records matching the query, ignoring
// ordering and pagination.
func (q *Query[T]) Count() (int64, error) {
	if q.err != nil {
		return 0, &Error{Op: "count", Table: q.repo.tableName, Err: q.err}
	}

	selectExpr := "COUNT(*)"
	if q.distinct {
		selectExpr = fmt.Sprintf("COUNT(DISTINCT %s)", q.repo.Col(q.repo.metadata.PrimaryKeys[0]))
	}

	builder := q.applyFilters(squirrel.Select(selectExpr).
		From(q.repo.tableName).
		PlaceholderFormat(squirrel.Dollar))

	var count int64
	err := q.repo.executeQueryMiddleware(OpCount, q.ctx, nil, builder, func(mctx *MiddlewareContext) error {
		query, args, err := builder.ToSql()
		if err != nil {
			return &Error{Op: "count", Table: q.repo.tableName, Err: fmt.Errorf("failed to build count query: %w", err)}
		}
		mctx.Query, mctx.Args = query, args

		if err := q.repo.db.GetContext(mctx.Context, &count, query, args...); err != nil {
			return ParsePostgreSQLError(err, "count", q.repo.tableName)
		}
		return nil
	})

	return count, err
}

// Exists checks if any records match the query
func (q *Query[T]) Exists() (bool, error) {
	if q.err != nil {
		return false, &Error{Op: "exists", Table: q.repo.tableName, Err: q.err}
	}

	sub := q.applyFilters(squirrel.Select("1").From(q.repo.tableName))
	builder := squirrel.Select().
		Column(squirrel.Expr("EXISTS (?)", sub)).
		PlaceholderFormat(squirrel.Dollar)

	var exists bool
	err := q.repo.executeQueryMiddleware(OpExists, q.ctx, nil, builder, func(mctx *MiddlewareContext) error {
		query, args, err := builder.ToSql()
		if err != nil {
			return &Error{Op: "exists", Table: q.repo.tableName, Err: fmt.Errorf("failed to build exists query: %w", err)}
		}
		mctx.Query, mctx.Args = query, args

		if err := q.repo.db.GetContext(mctx.Context, &exists, query, args...); err != nil {
			return ParsePostgreSQLError(err, "exists", q.repo.tableName)
		}
		return nil
	})

	return exists, err
}

// Delete deletes all records matching the query. Joins are not supported.
func (q *Query[T]) Delete() (int64, error) {
	if q.err != nil {
		return 0, &Error{Op: "delete", Table: q.repo.tableName, Err: q.err}
	}
	if len(q.whereClause) == 0 {
		return 0, &Error{Op: "delete", Table: q.repo.tableName, Err: fmt.Errorf("refusing to delete without conditions")}
	}

	builder := squirrel.Delete(q.repo.tableName).
		Where(q.whereSqlizer()).
		PlaceholderFormat(squirrel.Dollar)

	var affected int64
	err := q.repo.executeQueryMiddleware(OpDelete, q.ctx, nil, builder, func(mctx *MiddlewareContext) error {
		query, args, err := builder.ToSql()
		if err != nil {
			return &Error{Op: "delete", Table: q.repo.tableName, Err: fmt.Errorf("failed to build delete query: %w", err)}
		}
		mctx.Query, mctx.Args = query, args

		result, err := q.repo.db.ExecContext(mctx.Context, query, args...)
		if err != nil {
			return ParsePostgreSQLError(err, "delete", q.repo.tableName)
		}

		affected, err = result.RowsAffected()
		if err != nil {
			return &Error{Op: "delete", Table: q.repo.tableName, Err: fmt.Errorf("failed to get rows affected: %w", err)}
		}
		return nil
	})

	return affected, err
}

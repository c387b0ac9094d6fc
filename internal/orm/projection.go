package orm

import (
	"fmt"

	"github.com/Masterminds/squirrel"
)

// SelectAs runs q with a custom column list and scans the rows into R.
// Column aliases must match the db tags of R.
func SelectAs[R any, T any](q *Query[T], columns ...string) ([]R, error) {
	if q.err != nil {
		return nil, &Error{Op: "select", Table: q.repo.tableName, Err: q.err}
	}
	if len(columns) == 0 {
		return nil, &Error{Op: "select", Table: q.repo.tableName, Err: fmt.Errorf("no columns selected")}
	}

	builder := squirrel.Select(columns...).
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

	rows := make([]R, 0)
	err := q.repo.executeQueryMiddleware(OpQuery, q.ctx, nil, builder, func(mctx *MiddlewareContext) error {
		query, args, err := builder.ToSql()
		if err != nil {
			return &Error{Op: "select", Table: q.repo.tableName, Err: fmt.Errorf("failed to build query: %w", err)}
		}
		mctx.Query, mctx.Args = query, args

		if err := q.repo.db.SelectContext(mctx.Context, &rows, query, args...); err != nil {
			return ParsePostgreSQLError(err, "select", q.repo.tableName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}

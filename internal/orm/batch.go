package orm

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
)

// CreateMany inserts records with a single multi-row INSERT and refreshes
// each record from the RETURNING rows, in order.
func (r *Repository[T]) CreateMany(ctx context.Context, records []T) error {
	if len(records) == 0 {
		return nil
	}

	builder := squirrel.Insert(r.tableName).
		Columns(r.insertColumnNames()...).
		PlaceholderFormat(squirrel.Dollar)

	for i := range records {
		builder = builder.Values(r.insertValues(&records[i])...)
	}
	builder = builder.Suffix(r.returningClause())

	return r.executeQueryMiddleware(OpCreateMany, ctx, records, builder, func(mctx *MiddlewareContext) error {
		query, args, err := builder.ToSql()
		if err != nil {
			return &Error{Op: "create_many", Table: r.tableName, Err: fmt.Errorf("failed to build query: %w", err)}
		}
		mctx.Query, mctx.Args = query, args

		var inserted []T
		if err := r.db.SelectContext(mctx.Context, &inserted, query, args...); err != nil {
			return ParsePostgreSQLError(err, "create_many", r.tableName)
		}
		if len(inserted) != len(records) {
			return &Error{
				Op:    "create_many",
				Table: r.tableName,
				Err:   fmt.Errorf("inserted %d rows, expected %d", len(inserted), len(records)),
			}
		}

		copy(records, inserted)
		return nil
	})
}

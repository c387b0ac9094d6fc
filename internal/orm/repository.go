package orm

import (
	"context"
	"fmt"
	"reflect"

	"github.com/Masterminds/squirrel"
	"github.com/eleven-am/foodgram/internal/parser"
)

// ModelMetadata describes how a model struct maps onto its table
type ModelMetadata struct {
	TableName   string
	PrimaryKeys []string
	Columns     []parser.FieldDefinition
}

// NewModelMetadata reads the db and dbdef tags of T
func NewModelMetadata[T any]() (*ModelMetadata, error) {
	var zero T
	table, err := parser.NewStructParser().ParseModel(reflect.TypeOf(zero))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStruct, err)
	}

	return &ModelMetadata{
		TableName:   table.TableName,
		PrimaryKeys: table.PrimaryKeys(),
		Columns:     table.Fields,
	}, nil
}

// Repository provides CRUD operations for a single model type
type Repository[T any] struct {
	db       DBExecutor
	metadata *ModelMetadata

	tableName     string
	selectColumns []string
	insertColumns []parser.FieldDefinition
	updateColumns []parser.FieldDefinition

	middlewareManager *middlewareManager
}

// NewRepository creates a repository for T. A nil metadata is derived from
// the struct tags of T.
func NewRepository[T any](db DBExecutor, metadata *ModelMetadata) (*Repository[T], error) {
	if metadata == nil {
		var err error
		if metadata, err = NewModelMetadata[T](); err != nil {
			return nil, err
		}
	}

	if len(metadata.PrimaryKeys) == 0 {
		return nil, &Error{Op: "new_repository", Table: metadata.TableName, Err: ErrNoPrimaryKey}
	}

	repo := &Repository[T]{
		db:        db,
		metadata:  metadata,
		tableName: metadata.TableName,
	}

	for _, col := range metadata.Columns {
		repo.selectColumns = append(repo.selectColumns, metadata.TableName+"."+col.DBName)
		if !col.IsGenerated() {
			repo.insertColumns = append(repo.insertColumns, col)
		}
		if !col.IsPrimaryKey() {
			repo.updateColumns = append(repo.updateColumns, col)
		}
	}

	return repo, nil
}

// WithExecutor returns a copy of the repository bound to another executor,
// sharing its metadata and middleware.
func (r *Repository[T]) WithExecutor(db DBExecutor) *Repository[T] {
	clone := *r
	clone.db = db
	return &clone
}

// TableName returns the table the repository reads and writes
func (r *Repository[T]) TableName() string {
	return r.tableName
}

// Metadata returns the model metadata
func (r *Repository[T]) Metadata() *ModelMetadata {
	return r.metadata
}

// Col returns a table-qualified column reference
func (r *Repository[T]) Col(name string) string {
	return r.tableName + "." + name
}

func (r *Repository[T]) returningClause() string {
	names := make([]string, len(r.metadata.Columns))
	for i, col := range r.metadata.Columns {
		names[i] = col.DBName
	}
	return "RETURNING " + joinColumns(names)
}

// insertValues extracts the insert values of record. Zero values of columns
// with a database default are sent as DEFAULT.
func (r *Repository[T]) insertValues(record *T) []interface{} {
	v := reflect.ValueOf(record).Elem()
	values := make([]interface{}, len(r.insertColumns))
	for i, col := range r.insertColumns {
		field := v.FieldByIndex(col.Index)
		if col.HasDefault() && field.IsZero() {
			values[i] = squirrel.Expr("DEFAULT")
			continue
		}
		values[i] = field.Interface()
	}
	return values
}

func (r *Repository[T]) insertColumnNames() []string {
	names := make([]string, len(r.insertColumns))
	for i, col := range r.insertColumns {
		names[i] = col.DBName
	}
	return names
}

func (r *Repository[T]) primaryKeyCondition(record *T) squirrel.Eq {
	v := reflect.ValueOf(record).Elem()
	eq := squirrel.Eq{}
	for _, pk := range r.metadata.PrimaryKeys {
		for _, col := range r.metadata.Columns {
			if col.DBName == pk {
				eq[pk] = v.FieldByIndex(col.Index).Interface()
			}
		}
	}
	return eq
}

// Create inserts record and refreshes it from the RETURNING row
func (r *Repository[T]) Create(ctx context.Context, record *T) error {
	if record == nil {
		return &Error{Op: "create", Table: r.tableName, Err: fmt.Errorf("record cannot be nil")}
	}

	builder := squirrel.Insert(r.tableName).
		Columns(r.insertColumnNames()...).
		Values(r.insertValues(record)...).
		Suffix(r.returningClause()).
		PlaceholderFormat(squirrel.Dollar)

	return r.executeQueryMiddleware(OpCreate, ctx, record, builder, func(mctx *MiddlewareContext) error {
		query, args, err := builder.ToSql()
		if err != nil {
			return &Error{Op: "create", Table: r.tableName, Err: fmt.Errorf("failed to build query: %w", err)}
		}
		mctx.Query, mctx.Args = query, args

		if err := r.db.QueryRowxContext(mctx.Context, query, args...).StructScan(record); err != nil {
			return ParsePostgreSQLError(err, "create", r.tableName)
		}
		return nil
	})
}

// FindByID loads a record by its single-column primary key
func (r *Repository[T]) FindByID(ctx context.Context, id interface{}) (*T, error) {
	if len(r.metadata.PrimaryKeys) != 1 {
		return nil, &Error{Op: "find_by_id", Table: r.tableName, Err: fmt.Errorf("composite primary key")}
	}

	return r.Query(ctx).
		Where(Expr(r.Col(r.metadata.PrimaryKeys[0])+" = ?", id)).
		First()
}

// Update writes every non-key column of record. ErrNotFound when no row
// matches the primary key.
func (r *Repository[T]) Update(ctx context.Context, record *T) error {
	if record == nil {
		return &Error{Op: "update", Table: r.tableName, Err: fmt.Errorf("record cannot be nil")}
	}

	v := reflect.ValueOf(record).Elem()
	builder := squirrel.Update(r.tableName).PlaceholderFormat(squirrel.Dollar)
	for _, col := range r.updateColumns {
		builder = builder.Set(col.DBName, v.FieldByIndex(col.Index).Interface())
	}
	builder = builder.Where(r.primaryKeyCondition(record))

	return r.executeQueryMiddleware(OpUpdate, ctx, record, builder, func(mctx *MiddlewareContext) error {
		query, args, err := builder.ToSql()
		if err != nil {
			return &Error{Op: "update", Table: r.tableName, Err: fmt.Errorf("failed to build query: %w", err)}
		}
		mctx.Query, mctx.Args = query, args

		result, err := r.db.ExecContext(mctx.Context, query, args...)
		if err != nil {
			return ParsePostgreSQLError(err, "update", r.tableName)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return &Error{Op: "update", Table: r.tableName, Err: err}
		}
		if affected == 0 {
			return &Error{Op: "update", Table: r.tableName, Err: ErrNotFound}
		}
		return nil
	})
}

// Delete removes the record with the given single-column primary key
func (r *Repository[T]) Delete(ctx context.Context, id interface{}) error {
	affected, err := r.Query(ctx).
		Where(Expr(r.metadata.PrimaryKeys[0]+" = ?", id)).
		Delete()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &Error{Op: "delete", Table: r.tableName, Err: ErrNotFound}
	}
	return nil
}

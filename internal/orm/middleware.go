package orm

import (
	"context"
	"time"
)

// OperationType represents different types of database operations
type OperationType string

const (
	OpCreate     OperationType = "create"
	OpCreateMany OperationType = "create_many"
	OpUpdate     OperationType = "update"
	OpDelete     OperationType = "delete"
	OpQuery      OperationType = "query"
	OpCount      OperationType = "count"
	OpExists     OperationType = "exists"
)

// MiddlewareContext contains information passed to middleware. Query and
// Args are filled in by the final handler once the SQL has been built.
type MiddlewareContext struct {
	Operation    OperationType
	TableName    string
	Record       interface{}
	QueryBuilder interface{} // squirrel.SelectBuilder, squirrel.InsertBuilder, etc.
	Query        string
	Args         []interface{}
	StartTime    time.Time
	Context      context.Context
	Metadata     map[string]interface{}
}

// QueryMiddlewareFunc executes one step of the chain
type QueryMiddlewareFunc func(ctx *MiddlewareContext) error

// QueryMiddleware wraps the next step of the chain
type QueryMiddleware func(next QueryMiddlewareFunc) QueryMiddlewareFunc

type middlewareManager struct {
	middleware []QueryMiddleware
}

func newMiddlewareManager() *middlewareManager {
	return &middlewareManager{
		middleware: make([]QueryMiddleware, 0),
	}
}

func (mm *middlewareManager) AddMiddleware(middleware QueryMiddleware) {
	mm.middleware = append(mm.middleware, middleware)
}

func (mm *middlewareManager) ExecuteMiddleware(ctx *MiddlewareContext, finalFunc QueryMiddlewareFunc) error {
	handler := finalFunc

	for i := len(mm.middleware) - 1; i >= 0; i-- {
		handler = mm.middleware[i](handler)
	}

	return handler(ctx)
}

func (r *Repository[T]) executeQueryMiddleware(op OperationType, ctx context.Context, record interface{}, queryBuilder interface{}, finalFunc QueryMiddlewareFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}

	middlewareCtx := &MiddlewareContext{
		Operation:    op,
		TableName:    r.tableName,
		Record:       record,
		QueryBuilder: queryBuilder,
		Context:      ctx,
		StartTime:    time.Now(),
		Metadata:     make(map[string]interface{}),
	}

	if r.middlewareManager == nil {
		return finalFunc(middlewareCtx)
	}

	return r.middlewareManager.ExecuteMiddleware(middlewareCtx, finalFunc)
}

// AddMiddleware appends middleware to the repository chain. Copies made by
// WithExecutor afterwards share the chain.
func (r *Repository[T]) AddMiddleware(middleware QueryMiddleware) {
	if r.middlewareManager == nil {
		r.middlewareManager = newMiddlewareManager()
	}
	r.middlewareManager.AddMiddleware(middleware)
}

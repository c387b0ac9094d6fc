package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/foodgram/internal/models"
	"github.com/eleven-am/foodgram/internal/orm"
)

// Store is the repository registry for every persisted model. A Store
// obtained inside WithTransaction runs all repositories on the transaction.
type Store struct {
	db       *sqlx.DB
	executor orm.DBExecutor

	Users             *orm.Repository[models.User]
	Subscriptions     *orm.Repository[models.Subscription]
	Tags              *orm.Repository[models.Tag]
	Ingredients       *orm.Repository[models.Ingredient]
	Recipes           *orm.Repository[models.Recipe]
	RecipeIngredients *orm.Repository[models.RecipeIngredient]
	RecipeTags        *orm.Repository[models.RecipeTag]
	Favorites         *orm.Repository[models.Favorite]
	Carts             *orm.Repository[models.Cart]
}

// New builds every repository on db and installs the middleware chain
func New(db *sqlx.DB, middleware ...orm.QueryMiddleware) (*Store, error) {
	s := &Store{db: db, executor: db}

	var err error
	if s.Users, err = newRepo[models.User](db, middleware); err != nil {
		return nil, err
	}
	if s.Subscriptions, err = newRepo[models.Subscription](db, middleware); err != nil {
		return nil, err
	}
	if s.Tags, err = newRepo[models.Tag](db, middleware); err != nil {
		return nil, err
	}
	if s.Ingredients, err = newRepo[models.Ingredient](db, middleware); err != nil {
		return nil, err
	}
	if s.Recipes, err = newRepo[models.Recipe](db, middleware); err != nil {
		return nil, err
	}
	if s.RecipeIngredients, err = newRepo[models.RecipeIngredient](db, middleware); err != nil {
		return nil, err
	}
	if s.RecipeTags, err = newRepo[models.RecipeTag](db, middleware); err != nil {
		return nil, err
	}
	if s.Favorites, err = newRepo[models.Favorite](db, middleware); err != nil {
		return nil, err
	}
	if s.Carts, err = newRepo[models.Cart](db, middleware); err != nil {
		return nil, err
	}

	return s, nil
}

func newRepo[T any](db orm.DBExecutor, middleware []orm.QueryMiddleware) (*orm.Repository[T], error) {
	repo, err := orm.NewRepository[T](db, nil)
	if err != nil {
		var zero T
		return nil, fmt.Errorf("repository for %T: %w", zero, err)
	}
	for _, mw := range middleware {
		repo.AddMiddleware(mw)
	}
	return repo, nil
}

// withExecutor rebinds every repository onto executor
func (s *Store) withExecutor(executor orm.DBExecutor) *Store {
	return &Store{
		db:                s.db,
		executor:          executor,
		Users:             s.Users.WithExecutor(executor),
		Subscriptions:     s.Subscriptions.WithExecutor(executor),
		Tags:              s.Tags.WithExecutor(executor),
		Ingredients:       s.Ingredients.WithExecutor(executor),
		Recipes:           s.Recipes.WithExecutor(executor),
		RecipeIngredients: s.RecipeIngredients.WithExecutor(executor),
		RecipeTags:        s.RecipeTags.WithExecutor(executor),
		Favorites:         s.Favorites.WithExecutor(executor),
		Carts:             s.Carts.WithExecutor(executor),
	}
}

// WithTransaction executes fn within a database transaction. Nested calls
// reuse the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(*Store) error) error {
	return s.WithTransactionOptions(ctx, nil, fn)
}

// WithTransactionOptions is WithTransaction with explicit isolation settings
func (s *Store) WithTransactionOptions(ctx context.Context, opts *orm.TransactionOptions, fn func(*Store) error) error {
	if s.InTransaction() {
		return fn(s)
	}

	if s.db == nil {
		return fmt.Errorf("cannot start transaction: store has no database connection")
	}

	return orm.NewTransactionManager(s.db).WithTransactionOptions(ctx, opts, func(tx *sqlx.Tx) error {
		return fn(s.withExecutor(tx))
	})
}

// InTransaction reports whether the store is bound to a transaction
func (s *Store) InTransaction() bool {
	_, ok := s.executor.(*sqlx.Tx)
	return ok
}

// DB returns the underlying connection pool
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

package kitchen

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	recipeExistsSQL   = `SELECT EXISTS (SELECT 1 FROM recipes WHERE recipes.id = $1)`
	userExistsSQL     = `SELECT EXISTS (SELECT 1 FROM users WHERE users.id = $1)`
	favoriteExistsSQL = `SELECT EXISTS (SELECT 1 FROM favorites WHERE (favorites.user_id = $1 AND favorites.recipe_id = $2))`
)

func existsRow(v bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(v)
}

func TestRelationGuardAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a new favorite", func(t *testing.T) {
		s, mock := newMockService(t)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta(recipeExistsSQL)).WithArgs(int64(5)).WillReturnRows(existsRow(true))
		mock.ExpectQuery(regexp.QuoteMeta(favoriteExistsSQL)).WithArgs(int64(1), int64(5)).WillReturnRows(existsRow(false))
		mock.ExpectQuery(`INSERT INTO favorites \(user_id,recipe_id,created_at\) VALUES \(\$1,\$2,DEFAULT\) RETURNING`).
			WithArgs(int64(1), int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "recipe_id", "created_at"}).AddRow(9, 1, 5, now))

		rel, err := s.AddRelation(ctx, Favorite, 1, 5)
		require.NoError(t, err)
		assert.Equal(t, &Relation{ID: 9, Kind: Favorite, SubjectID: 1, ObjectID: 5, CreatedAt: now}, rel)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("self subscription is rejected before any query", func(t *testing.T) {
		s, mock := newMockService(t)

		_, err := s.AddRelation(ctx, Subscription, 3, 3)
		assert.ErrorIs(t, err, ErrSelfReference)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing object", func(t *testing.T) {
		s, mock := newMockService(t)

		mock.ExpectQuery(regexp.QuoteMeta(userExistsSQL)).WithArgs(int64(8)).WillReturnRows(existsRow(false))

		_, err := s.AddRelation(ctx, Subscription, 3, 8)
		assert.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing pair", func(t *testing.T) {
		s, mock := newMockService(t)

		mock.ExpectQuery(regexp.QuoteMeta(recipeExistsSQL)).WithArgs(int64(5)).WillReturnRows(existsRow(true))
		mock.ExpectQuery(regexp.QuoteMeta(favoriteExistsSQL)).WithArgs(int64(1), int64(5)).WillReturnRows(existsRow(true))

		_, err := s.AddRelation(ctx, Favorite, 1, 5)
		assert.ErrorIs(t, err, ErrAlreadyExists)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation from a concurrent add", func(t *testing.T) {
		s, mock := newMockService(t)

		mock.ExpectQuery(regexp.QuoteMeta(recipeExistsSQL)).WithArgs(int64(5)).WillReturnRows(existsRow(true))
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM carts`).WithArgs(int64(1), int64(5)).WillReturnRows(existsRow(false))
		mock.ExpectQuery(`INSERT INTO carts`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "uk_carts_pair"})

		_, err := s.AddRelation(ctx, Cart, 1, 5)
		assert.ErrorIs(t, err, ErrAlreadyExists)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("object deleted between check and insert", func(t *testing.T) {
		s, mock := newMockService(t)

		mock.ExpectQuery(regexp.QuoteMeta(recipeExistsSQL)).WillReturnRows(existsRow(true))
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM carts`).WillReturnRows(existsRow(false))
		mock.ExpectQuery(`INSERT INTO carts`).WillReturnError(&pq.Error{Code: "23503"})

		_, err := s.AddRelation(ctx, Cart, 1, 5)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown kind", func(t *testing.T) {
		s, _ := newMockService(t)

		_, err := s.AddRelation(ctx, RelationKind("like"), 1, 5)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestRelationGuardRemove(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockService(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM carts WHERE (carts.user_id = $1 AND carts.recipe_id = $2)`)).
		WithArgs(int64(1), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.RemoveRelation(ctx, Cart, 1, 5))

	mock.ExpectExec(`DELETE FROM subscriptions`).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := s.RemoveRelation(ctx, Subscription, 1, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationGuardExists(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(favoriteExistsSQL)).WithArgs(int64(1), int64(5)).WillReturnRows(existsRow(true))

	ok, err := s.Relations().Exists(context.Background(), Favorite, 1, 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

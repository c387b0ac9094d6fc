package orm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDish struct {
	_ struct{} `dbdef:"table:dishes"`

	ID        int64     `db:"id" dbdef:"type:bigserial;primary_key"`
	Name      string    `db:"name" dbdef:"type:varchar(200);not_null"`
	Minutes   int       `db:"minutes" dbdef:"type:integer;not_null"`
	CreatedAt time.Time `db:"created_at" dbdef:"type:timestamptz;not_null;default:now()"`
}

type testDishTag struct {
	_ struct{} `dbdef:"table:dish_tags"`

	DishID int64 `db:"dish_id" dbdef:"type:bigint;primary_key"`
	TagID  int64 `db:"tag_id" dbdef:"type:bigint;primary_key"`
}

var dishColumns = []string{"id", "name", "minutes", "created_at"}

func newMockRepo[T any](t *testing.T) (*Repository[T], sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository[T](sqlx.NewDb(db, "postgres"), nil)
	require.NoError(t, err)

	return repo, mock
}

func TestNewRepository(t *testing.T) {
	repo, _ := newMockRepo[testDish](t)

	assert.Equal(t, "dishes", repo.TableName())
	assert.Equal(t, []string{"id"}, repo.Metadata().PrimaryKeys)
	assert.Equal(t, []string{"dishes.id", "dishes.name", "dishes.minutes", "dishes.created_at"}, repo.selectColumns)
	assert.Equal(t, []string{"name", "minutes", "created_at"}, repo.insertColumnNames())

	t.Run("requires a primary key", func(t *testing.T) {
		type keyless struct {
			Name string `db:"name" dbdef:"type:text"`
		}
		_, err := NewRepository[keyless](nil, nil)
		assert.ErrorIs(t, err, ErrNoPrimaryKey)
	})
}

func TestCreate(t *testing.T) {
	repo, mock := newMockRepo[testDish](t)
	now := time.Now()

	t.Run("zero defaults are sent as DEFAULT", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO dishes \(name,minutes,created_at\) VALUES \(\$1,\$2,DEFAULT\) RETURNING id, name, minutes, created_at`).
			WithArgs("Borscht", 90).
			WillReturnRows(sqlmock.NewRows(dishColumns).AddRow(7, "Borscht", 90, now))

		dish := &testDish{Name: "Borscht", Minutes: 90}
		require.NoError(t, repo.Create(context.Background(), dish))
		assert.Equal(t, int64(7), dish.ID)
		assert.Equal(t, now, dish.CreatedAt)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation is classified", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO dishes`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "dishes_name_key"})

		err := repo.Create(context.Background(), &testDish{Name: "Borscht", Minutes: 90})
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.Equal(t, "dishes_name_key", GetConstraintName(err))

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil record", func(t *testing.T) {
		assert.Error(t, repo.Create(context.Background(), nil))
	})
}

func TestCreateMany(t *testing.T) {
	repo, mock := newMockRepo[testDishTag](t)

	mock.ExpectQuery(`INSERT INTO dish_tags \(dish_id,tag_id\) VALUES \(\$1,\$2\),\(\$3,\$4\) RETURNING dish_id, tag_id`).
		WithArgs(int64(1), int64(10), int64(1), int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"dish_id", "tag_id"}).AddRow(1, 10).AddRow(1, 11))

	links := []testDishTag{{DishID: 1, TagID: 10}, {DishID: 1, TagID: 11}}
	require.NoError(t, repo.CreateMany(context.Background(), links))
	require.NoError(t, mock.ExpectationsWereMet())

	t.Run("empty input is a no-op", func(t *testing.T) {
		require.NoError(t, repo.CreateMany(context.Background(), nil))
	})
}

func TestFindByID(t *testing.T) {
	repo, mock := newMockRepo[testDish](t)

	t.Run("existing record", func(t *testing.T) {
		mock.ExpectQuery(`SELECT dishes.id, dishes.name, dishes.minutes, dishes.created_at FROM dishes WHERE dishes.id = \$1 LIMIT 1`).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows(dishColumns).AddRow(3, "Pilaf", 60, time.Now()))

		dish, err := repo.FindByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "Pilaf", dish.Name)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing record", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM dishes WHERE dishes.id = \$1`).
			WithArgs(999).
			WillReturnRows(sqlmock.NewRows(dishColumns))

		dish, err := repo.FindByID(context.Background(), 999)
		assert.Nil(t, dish)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdate(t *testing.T) {
	repo, mock := newMockRepo[testDish](t)
	created := time.Now()

	t.Run("updates non-key columns", func(t *testing.T) {
		mock.ExpectExec(`UPDATE dishes SET name = \$1, minutes = \$2, created_at = \$3 WHERE id = \$4`).
			WithArgs("Pilaf", 45, created, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), &testDish{ID: 3, Name: "Pilaf", Minutes: 45, CreatedAt: created})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec(`UPDATE dishes`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), &testDish{ID: 4, Name: "Soup", Minutes: 1})
		assert.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDelete(t *testing.T) {
	repo, mock := newMockRepo[testDish](t)

	t.Run("deletes existing row", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM dishes WHERE id = \$1`).
			WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Delete(context.Background(), int64(5)))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM dishes WHERE id = \$1`).
			WithArgs(int64(6)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), int64(6))
		assert.True(t, errors.Is(err, ErrNotFound))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

package kitchen

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eleven-am/foodgram/internal/models"
)

func validUser() UserInput {
	return UserInput{
		Email:     "chef@example.com",
		Username:  "chef.anna",
		FirstName: "Anna",
		LastName:  "Cook",
		Password:  "correct horse",
	}
}

func TestUserInputValidate(t *testing.T) {
	require.NoError(t, validUser().validate())

	tests := []struct {
		name   string
		mutate func(*UserInput)
	}{
		{"bad email", func(in *UserInput) { in.Email = "not-an-email" }},
		{"display name in email", func(in *UserInput) { in.Email = "Anna <chef@example.com>" }},
		{"username with space", func(in *UserInput) { in.Username = "chef anna" }},
		{"username with slash", func(in *UserInput) { in.Username = "chef/anna" }},
		{"missing first name", func(in *UserInput) { in.FirstName = "" }},
		{"short password", func(in *UserInput) { in.Password = "short" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validUser()
			tt.mutate(&in)
			assert.ErrorIs(t, in.validate(), ErrInvalidInput)
		})
	}
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a bcrypt hash", func(t *testing.T) {
		s, mock := newMockService(t)

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (email,username,first_name,last_name,password_hash,is_admin,created_at) VALUES ($1,$2,$3,$4,$5,DEFAULT,DEFAULT) RETURNING`)).
			WithArgs("chef@example.com", "chef.anna", "Anna", "Cook", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(1, "chef@example.com", "chef.anna", "Anna", "Cook", "hash", false, published))

		profile, err := s.RegisterUser(ctx, validUser())
		require.NoError(t, err)
		assert.Equal(t, &UserProfile{
			ID:        1,
			Email:     "chef@example.com",
			Username:  "chef.anna",
			FirstName: "Anna",
			LastName:  "Cook",
		}, profile)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		s, mock := newMockService(t)

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

		_, err := s.RegisterUser(ctx, validUser())
		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.Contains(t, err.Error(), "email already registered")
	})
}

func TestAuthenticate(t *testing.T) {
	s, mock := newMockService(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(userColumns).
			AddRow(1, "chef@example.com", "chef", "Anna", "Cook", string(hash), false, published)
	}

	mock.ExpectQuery(`FROM users WHERE users.email = \$1 LIMIT 1`).
		WithArgs("chef@example.com").
		WillReturnRows(row())
	user, err := s.Authenticate(context.Background(), "chef@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)

	mock.ExpectQuery(`FROM users WHERE users.email = \$1 LIMIT 1`).WillReturnRows(row())
	_, err = s.Authenticate(context.Background(), "chef@example.com", "wrong")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(`FROM users WHERE users.email = \$1 LIMIT 1`).WillReturnRows(sqlmock.NewRows(userColumns))
	_, err = s.Authenticate(context.Background(), "nobody@example.com", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUserSubscribedFlag(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(`FROM users WHERE users.id = \$1 LIMIT 1`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(2, "chef@example.com", "chef", "Anna", "Cook", "x", false, published))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT subscriptions.author_id AS id FROM subscriptions WHERE (subscriptions.follower_id = $1 AND subscriptions.author_id = ANY($2))`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	profile, err := s.GetUser(context.Background(), 2, int64Ptr(5))
	require.NoError(t, err)
	assert.True(t, profile.IsSubscribed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSubscriptions(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users INNER JOIN subscriptions ON subscriptions.author_id = users.id WHERE subscriptions.follower_id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM users INNER JOIN subscriptions .* ORDER BY users.username ASC LIMIT 6 OFFSET 0`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(2, "chef@example.com", "chef", "Anna", "Cook", "x", false, published))
	mock.ExpectQuery(`SELECT recipes.id AS id, recipes.author_id AS author_id, .* FROM recipes WHERE recipes.author_id = ANY\(\$1\) ORDER BY recipes.pub_date DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "name", "image", "cooking_time"}).
			AddRow(13, 2, "Soup", "s.png", 40).
			AddRow(12, 2, "Salad", "sa.png", 10).
			AddRow(11, 2, "Stew", "st.png", 90))
	mock.ExpectQuery(`SELECT subscriptions.author_id AS id FROM subscriptions`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	page, err := s.ListSubscriptions(context.Background(), 5, Page{}, 2)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, page.Results, 1)
	author := page.Results[0]
	assert.True(t, author.IsSubscribed)
	assert.Equal(t, int64(3), author.RecipesCount)
	require.Len(t, author.Recipes, 2)
	assert.Equal(t, "Soup", author.Recipes[0].Name)
}

func TestCreateTagRequiresAdmin(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(`FROM users WHERE users.id = \$1 LIMIT 1`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(4, "u@example.com", "u", "U", "V", "x", false, published))

	_, err := s.CreateTag(context.Background(), 4, models.Tag{Title: "Breakfast", Slug: "breakfast"})
	assert.ErrorIs(t, err, ErrForbidden)

	mock.ExpectQuery(`FROM users WHERE users.id = \$1 LIMIT 1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "a@example.com", "admin", "A", "B", "x", true, published))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO tags (title,color,slug) VALUES ($1,DEFAULT,$2) RETURNING id, title, color, slug`)).
		WithArgs("Breakfast", "breakfast").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "color", "slug"}).AddRow(1, "Breakfast", "#FF0000", "breakfast"))

	tag, err := s.CreateTag(context.Background(), 1, models.Tag{Title: "Breakfast", Slug: "breakfast"})
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", tag.Color)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTagValidation(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(`FROM users WHERE users.id = \$1 LIMIT 1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "a@example.com", "admin", "A", "B", "x", true, published))

	_, err := s.CreateTag(context.Background(), 1, models.Tag{Title: "Lunch", Slug: "lunch", Color: "red"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSearchIngredients(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM ingredients WHERE ingredients.name ILIKE $1 ORDER BY ingredients.name ASC, ingredients.id ASC`)).
		WithArgs(`50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "measurement_unit"}))

	_, err := s.SearchIngredients(context.Background(), "50%")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM ingredients ORDER BY ingredients.name ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "measurement_unit"}).
			AddRow(1, "flour", "g"))

	all, err := s.SearchIngredients(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

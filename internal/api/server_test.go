package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/foodgram/internal/kitchen"
	"github.com/eleven-am/foodgram/internal/media"
	"github.com/eleven-am/foodgram/internal/orm"
	"github.com/eleven-am/foodgram/internal/store"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st, err := store.New(sqlx.NewDb(db, "postgres"))
	require.NoError(t, err)

	srv, err := NewServer(kitchen.NewService(st), opts...)
	require.NoError(t, err)
	return srv, mock
}

func do(srv http.Handler, method, target, user, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{kitchen.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: recipe 4", kitchen.ErrNotFound), http.StatusNotFound},
		{kitchen.ErrForbidden, http.StatusForbidden},
		{kitchen.ErrAlreadyExists, http.StatusBadRequest},
		{kitchen.ErrSelfReference, http.StatusBadRequest},
		{kitchen.ErrInvalidAmount, http.StatusBadRequest},
		{kitchen.ErrDuplicateIngredient, http.StatusBadRequest},
		{kitchen.ErrInvalidInput, http.StatusBadRequest},
		{media.ErrImageTooLarge, http.StatusBadRequest},
		{&orm.Error{Op: "find", Table: "recipes", Err: errors.New("syntax error")}, http.StatusInternalServerError},
		{&orm.Error{Op: "find", Table: "recipes", Err: orm.ErrConnectionFailed, Retryable: true}, http.StatusServiceUnavailable},
		{fmt.Errorf("list recipes: %w", &orm.Error{Err: orm.ErrTimeout, Retryable: true}), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestTransientDatabaseFailure(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(`SELECT .* FROM tags`).WillReturnError(errors.New("dial tcp: connection refused"))

	rec := do(srv, http.MethodGet, "/api/tags", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "temporarily unavailable")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityHeader(t *testing.T) {
	srv, mock := newTestServer(t)

	rec := do(srv, http.MethodGet, "/api/users/me", "abc", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), UserHeader)

	rec = do(srv, http.MethodGet, "/api/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(srv, http.MethodPost, "/api/recipes", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelfSubscription(t *testing.T) {
	srv, mock := newTestServer(t)

	rec := do(srv, http.MethodPost, "/api/users/7/subscribe", "7", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"errors":"self reference not allowed"}`, rec.Body.String())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTags(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(`FROM tags ORDER BY tags.title ASC, tags.id ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "color", "slug"}).
			AddRow(1, "Breakfast", "#E26C2D", "breakfast").
			AddRow(2, "Dinner", "#49B64E", "dinner"))

	rec := do(srv, http.MethodGet, "/api/tags", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"id":1,"name":"Breakfast","color":"#E26C2D","slug":"breakfast"},
		{"id":2,"name":"Dinner","color":"#49B64E","slug":"dinner"}
	]`, rec.Body.String())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetIngredientNotFound(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(`FROM ingredients WHERE ingredients.id = \$1 LIMIT 1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "measurement_unit"}))

	rec := do(srv, http.MethodGet, "/api/ingredients/42", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(srv, http.MethodGet, "/api/ingredients/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownloadShoppingCart(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(`FROM carts INNER JOIN recipe_ingredients .* WHERE carts.user_id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "measurement_unit", "amount"}).
			AddRow("flour", "g", 200).
			AddRow("sugar", "g", 100).
			AddRow("flour", "g", 300))

	rec := do(srv, http.MethodGet, "/api/recipes/download_shopping_cart", "3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=shopping_list.txt", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, kitchen.ShoppingListHeader+"\nflour - 500 g\nsugar - 100 g", rec.Body.String())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeListQueryValidation(t *testing.T) {
	srv, mock := newTestServer(t)

	rec := do(srv, http.MethodGet, "/api/recipes?author=me", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodGet, "/api/recipes?page=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRecipeRejectsMalformedBody(t *testing.T) {
	srv, mock := newTestServer(t)

	rec := do(srv, http.MethodPost, "/api/recipes", "1", `{"name": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodPost, "/api/recipes", "1",
		`{"name":"Soup","text":"Boil","cooking_time":10,"image":"x","tags":[1],"ingredients":[{"id":1,"amount":2.5}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid amount")

	rec = do(srv, http.MethodPost, "/api/recipes", "1",
		`{"name":"Soup","text":"Boil","cooking_time":10,"image":"x","tags":[1],"ingredients":[{"id":1,"amount":"abc"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid amount")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPaginated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/recipes?page=2&limit=6&tags=lunch", nil)

	out := newPaginated(req, 13, kitchen.Page{Number: 2, Size: 6}, []int{})
	require.NotNil(t, out.Next)
	require.NotNil(t, out.Previous)
	assert.Equal(t, "http://example.com/api/recipes?limit=6&page=3&tags=lunch", *out.Next)
	assert.Equal(t, "http://example.com/api/recipes?limit=6&page=1&tags=lunch", *out.Previous)

	out = newPaginated(req, 12, kitchen.Page{Number: 2, Size: 6}, []int{})
	assert.Nil(t, out.Next)

	out = newPaginated(req, 40, kitchen.Page{Number: 1, Size: 6, Unpaged: true}, []int{})
	assert.Nil(t, out.Next)
	assert.Nil(t, out.Previous)
}

func TestHugePageIsBadRequest(t *testing.T) {
	srv, mock := newTestServer(t)

	rec := do(srv, http.MethodGet, "/api/recipes?page=1537228672809129303&limit=6", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "out of range")

	rec = do(srv, http.MethodGet, "/api/users?page=99999999999999999999", "1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv, mock := newTestServer(t, WithRegistry(reg))

	mock.ExpectQuery(`FROM tags`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "color", "slug"}))

	rec := do(srv, http.MethodGet, "/api/tags", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = do(srv, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "foodgram_http_requests_total")
	assert.Contains(t, body, `route="/api/tags`)
	assert.Contains(t, body, "foodgram_http_request_duration_seconds")

	_, err := NewServer(nil, WithRegistry(reg))
	assert.Error(t, err, "collectors cannot be registered twice")
}

func TestHealthz(t *testing.T) {
	healthy := true
	srv, _ := newTestServer(t, WithHealthCheck(func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("database down")
	}))

	rec := do(srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = false
	rec = do(srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMediaFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "recipes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recipes", "a.txt"), []byte("pancake"), 0o644))

	srv, _ := newTestServer(t, WithMediaDir("/media/", dir))

	rec := do(srv, http.MethodGet, "/media/recipes/a.txt", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pancake", rec.Body.String())
}

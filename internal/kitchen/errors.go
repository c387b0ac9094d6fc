package kitchen

import (
	"errors"
	"fmt"

	"github.com/eleven-am/foodgram/internal/orm"
)

// Client-input errors. Storage failures are returned unchanged.
var (
	ErrAlreadyExists       = errors.New("already exists")
	ErrNotFound            = errors.New("not found")
	ErrSelfReference       = errors.New("self reference not allowed")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrDuplicateIngredient = errors.New("duplicate ingredient")
	ErrInvalidInput        = errors.New("invalid input")
	ErrForbidden           = errors.New("forbidden")
)

func invalid(field, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, fmt.Sprintf(format, args...))
}

// notFound maps a missing row onto ErrNotFound and passes other errors on
func notFound(err error, what string, id int64) error {
	if errors.Is(err, orm.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return err
}

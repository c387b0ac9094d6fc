package kitchen

import (
	"context"
	"strings"

	"github.com/eleven-am/foodgram/internal/models"
)

// SearchIngredients returns ingredients whose name starts with prefix,
// case-insensitively, ordered by name. An empty prefix lists everything.
func (s *Service) SearchIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	q := s.store.Ingredients.Query(ctx)
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		q.Where(ingredientName.IStartsWith(prefix))
	}
	return q.OrderBy(ingredientName.Asc(), ingredientID.Asc()).Find()
}

// GetIngredient returns one ingredient
func (s *Service) GetIngredient(ctx context.Context, id int64) (*models.Ingredient, error) {
	ing, err := s.store.Ingredients.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "ingredient", id)
	}
	return ing, nil
}

// CreateIngredient adds a catalogue entry. Administrators only.
func (s *Service) CreateIngredient(ctx context.Context, actorID int64, ing models.Ingredient) (*models.Ingredient, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	ing.ID = 0
	ing.Name = strings.TrimSpace(ing.Name)
	ing.MeasurementUnit = strings.TrimSpace(ing.MeasurementUnit)
	if err := checkLength("name", ing.Name, 200); err != nil {
		return nil, err
	}
	if err := checkLength("measurement_unit", ing.MeasurementUnit, 10); err != nil {
		return nil, err
	}

	if err := s.store.Ingredients.Create(ctx, &ing); err != nil {
		return nil, err
	}
	return &ing, nil
}

package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/eleven-am/foodgram/internal/models"
	"github.com/eleven-am/foodgram/internal/orm"
	"github.com/eleven-am/foodgram/internal/store"
)

const (
	maxRecipeName  = 200
	maxCookingTime = math.MaxInt16
	maxAmount      = math.MaxInt32
)

// Amount is the raw amount literal of an ingredient line. Decoding never
// fails; whatever was sent is judged by parseAmount.
type Amount string

// UnmarshalJSON keeps the literal, unquoting JSON strings
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	*a = Amount(raw)
	return nil
}

// IngredientAmount is one requested ingredient line
type IngredientAmount struct {
	ID     int64  `json:"id"`
	Amount Amount `json:"amount"`
}

// RecipeInput is the payload for creating or replacing a recipe
type RecipeInput struct {
	Name        string             `json:"name"`
	Image       string             `json:"image"`
	Text        string             `json:"text"`
	CookingTime int                `json:"cooking_time"`
	Tags        []int64            `json:"tags"`
	Ingredients []IngredientAmount `json:"ingredients"`
}

// parseAmount accepts a number, bare or quoted, whose value is a whole
// number in 1..maxAmount. 2.0 and 2e1 are whole; 2.5 is not.
func parseAmount(a Amount) (int, error) {
	raw := strings.TrimSpace(string(a))
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return amountInRange(float64(v), raw)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !json.Valid([]byte(raw)) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidAmount, raw)
	}
	return amountInRange(f, raw)
}

func amountInRange(v float64, raw string) (int, error) {
	if v < 1 || v > maxAmount {
		return 0, fmt.Errorf("%w: %s must be between 1 and %d", ErrInvalidAmount, raw, maxAmount)
	}
	return int(v), nil
}

// validateIngredients checks each line in order: the amount first, then
// that the ingredient id has not been seen before.
func validateIngredients(lines []IngredientAmount) ([]models.RecipeIngredient, error) {
	if len(lines) == 0 {
		return nil, invalid("ingredients", "at least one ingredient is required")
	}

	seen := make(map[int64]bool, len(lines))
	out := make([]models.RecipeIngredient, 0, len(lines))
	for _, line := range lines {
		amount, err := parseAmount(line.Amount)
		if err != nil {
			return nil, err
		}
		if seen[line.ID] {
			return nil, fmt.Errorf("%w: ingredient %d", ErrDuplicateIngredient, line.ID)
		}
		seen[line.ID] = true

		out = append(out, models.RecipeIngredient{IngredientID: line.ID, Amount: amount})
	}

	return out, nil
}

func validateRecipe(in RecipeInput, requireImage bool) ([]models.RecipeIngredient, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return nil, invalid("name", "must not be empty")
	case utf8.RuneCountInString(name) > maxRecipeName:
		return nil, invalid("name", "must be at most %d characters", maxRecipeName)
	case strings.TrimSpace(in.Text) == "":
		return nil, invalid("text", "must not be empty")
	case in.CookingTime < 1 || in.CookingTime > maxCookingTime:
		return nil, invalid("cooking_time", "must be between 1 and %d", maxCookingTime)
	case requireImage && in.Image == "":
		return nil, invalid("image", "is required")
	case len(in.Tags) == 0:
		return nil, invalid("tags", "at least one tag is required")
	}

	seen := make(map[int64]bool, len(in.Tags))
	for _, id := range in.Tags {
		if seen[id] {
			return nil, invalid("tags", "tag %d listed twice", id)
		}
		seen[id] = true
	}

	return validateIngredients(in.Ingredients)
}

// checkReferences fails with ErrNotFound when a tag or ingredient id is unknown
func checkReferences(ctx context.Context, st *store.Store, tags []int64, lines []models.RecipeIngredient) error {
	count, err := st.Tags.Query(ctx).Where(tagID.Any(tags)).Count()
	if err != nil {
		return err
	}
	if count != int64(len(tags)) {
		return fmt.Errorf("%w: unknown tag in %v", ErrNotFound, tags)
	}

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.IngredientID
	}
	count, err = st.Ingredients.Query(ctx).Where(ingredientID.Any(ids)).Count()
	if err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return fmt.Errorf("%w: unknown ingredient in %v", ErrNotFound, ids)
	}

	return nil
}

// replaceLinks writes the tag links and ingredient lines of recipe,
// removing any existing ones first.
func replaceLinks(ctx context.Context, st *store.Store, recipe int64, tags []int64, lines []models.RecipeIngredient, clear bool) error {
	if clear {
		if _, err := st.RecipeTags.Query(ctx).Where(recipeTagRecipe.Eq(recipe)).Delete(); err != nil {
			return err
		}
		if _, err := st.RecipeIngredients.Query(ctx).Where(lineRecipe.Eq(recipe)).Delete(); err != nil {
			return err
		}
	}

	links := make([]models.RecipeTag, len(tags))
	for i, tag := range tags {
		links[i] = models.RecipeTag{RecipeID: recipe, TagID: tag}
	}
	if err := st.RecipeTags.CreateMany(ctx, links); err != nil {
		return translateLinkError(err)
	}

	for i := range lines {
		lines[i].RecipeID = recipe
	}
	if err := st.RecipeIngredients.CreateMany(ctx, lines); err != nil {
		return translateLinkError(err)
	}

	return nil
}

// translateLinkError covers tags or ingredients deleted between the
// reference check and the insert.
func translateLinkError(err error) error {
	switch {
	case errors.Is(err, orm.ErrForeignKey):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, orm.ErrDuplicateKey):
		return fmt.Errorf("%w: %v", ErrDuplicateIngredient, err)
	}
	return err
}

func (s *Service) saveImage(ctx context.Context, data string) (string, error) {
	if s.images == nil {
		return data, nil
	}
	ref, err := s.images.Save(ctx, data)
	if err != nil {
		return "", invalid("image", "%v", err)
	}
	return ref, nil
}

func (s *Service) discardImage(ctx context.Context, ref string) {
	if s.images == nil || ref == "" {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		s.log.WithError(err).WithField("image", ref).Warn("failed to delete image")
	}
}

// CreateRecipe validates in and stores the recipe, its ingredient lines and
// its tag links in one transaction.
func (s *Service) CreateRecipe(ctx context.Context, authorID int64, in RecipeInput) (*RecipeDetail, error) {
	lines, err := validateRecipe(in, true)
	if err != nil {
		return nil, err
	}

	image, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        strings.TrimSpace(in.Name),
		Image:       image,
		Text:        in.Text,
		CookingTime: in.CookingTime,
	}

	err = s.store.WithTransaction(ctx, func(tx *store.Store) error {
		if err := checkReferences(ctx, tx, in.Tags, lines); err != nil {
			return err
		}
		if err := tx.Recipes.Create(ctx, recipe); err != nil {
			if errors.Is(err, orm.ErrForeignKey) {
				return fmt.Errorf("%w: user %d", ErrNotFound, authorID)
			}
			return err
		}
		return replaceLinks(ctx, tx, recipe.ID, in.Tags, lines, false)
	})
	if err != nil {
		if image != in.Image {
			s.discardImage(ctx, image)
		}
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{"recipe_id": recipe.ID, "author_id": authorID}).Info("recipe created")

	return s.GetRecipe(ctx, recipe.ID, &authorID)
}

// UpdateRecipe replaces the recipe's fields, tag set and ingredient lines.
// An empty image keeps the current one. Only the author may update.
func (s *Service) UpdateRecipe(ctx context.Context, id, editorID int64, in RecipeInput) (*RecipeDetail, error) {
	lines, err := validateRecipe(in, false)
	if err != nil {
		return nil, err
	}

	var replacedImage, newImage string
	err = s.store.WithTransaction(ctx, func(tx *store.Store) error {
		recipe, err := tx.Recipes.FindByID(ctx, id)
		if err != nil {
			return notFound(err, "recipe", id)
		}
		if recipe.AuthorID != editorID {
			return fmt.Errorf("%w: recipe %d belongs to another user", ErrForbidden, id)
		}
		if err := checkReferences(ctx, tx, in.Tags, lines); err != nil {
			return err
		}

		if in.Image != "" {
			if newImage, err = s.saveImage(ctx, in.Image); err != nil {
				return err
			}
			replacedImage, recipe.Image = recipe.Image, newImage
		}

		recipe.Name = strings.TrimSpace(in.Name)
		recipe.Text = in.Text
		recipe.CookingTime = in.CookingTime
		if err := tx.Recipes.Update(ctx, recipe); err != nil {
			return notFound(err, "recipe", id)
		}

		return replaceLinks(ctx, tx, id, in.Tags, lines, true)
	})
	if err != nil {
		if newImage != "" && newImage != in.Image {
			s.discardImage(ctx, newImage)
		}
		return nil, err
	}

	s.discardImage(ctx, replacedImage)
	s.log.WithFields(map[string]interface{}{"recipe_id": id, "editor_id": editorID}).Info("recipe updated")

	return s.GetRecipe(ctx, id, &editorID)
}

// DeleteRecipe removes a recipe and, by cascade, its lines, links, cart
// and favorite entries. Only the author may delete.
func (s *Service) DeleteRecipe(ctx context.Context, id, editorID int64) error {
	var image string
	err := s.store.WithTransaction(ctx, func(tx *store.Store) error {
		recipe, err := tx.Recipes.FindByID(ctx, id)
		if err != nil {
			return notFound(err, "recipe", id)
		}
		if recipe.AuthorID != editorID {
			return fmt.Errorf("%w: recipe %d belongs to another user", ErrForbidden, id)
		}
		image = recipe.Image
		return notFound(tx.Recipes.Delete(ctx, id), "recipe", id)
	})
	if err != nil {
		return err
	}

	s.discardImage(ctx, image)
	return nil
}

// GetRecipe loads one recipe with its details
func (s *Service) GetRecipe(ctx context.Context, id int64, requester *int64) (*RecipeDetail, error) {
	recipe, err := s.store.Recipes.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "recipe", id)
	}

	details, err := s.hydrate(ctx, []models.Recipe{*recipe}, requester)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

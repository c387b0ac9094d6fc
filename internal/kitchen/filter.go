package kitchen

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/eleven-am/foodgram/internal/orm"
)

// RecipeFilter holds the optional filter dimensions, combined with AND.
// Tags match any of the given slugs. IsFavorited and IsInShoppingCart only
// restrict when true and the requester is known.
type RecipeFilter struct {
	AuthorID         *int64
	Tags             []string
	IsFavorited      bool
	IsInShoppingCart bool
}

// RecipePage is one page of filtered recipes. Count is the total number of
// matching recipes across all pages.
type RecipePage struct {
	Count   int64          `json:"count"`
	Page    Page           `json:"-"`
	Results []RecipeDetail `json:"results"`
}

func (f RecipeFilter) conditions(requester *int64) []orm.Condition {
	var conds []orm.Condition

	if f.AuthorID != nil {
		conds = append(conds, recipeAuthor.Eq(*f.AuthorID))
	}

	slugs := make([]string, 0, len(f.Tags))
	for _, slug := range f.Tags {
		if slug != "" {
			slugs = append(slugs, slug)
		}
	}
	if len(slugs) > 0 {
		conds = append(conds, orm.Exists(squirrel.Select("1").
			From("recipe_tags").
			InnerJoin("tags ON tags.id = recipe_tags.tag_id").
			Where(orm.And(recipeTagRecipe.EqColumn(recipeID), tagSlug.Any(slugs)).ToSqlizer())))
	}

	if requester == nil {
		return conds
	}

	if f.IsFavorited {
		conds = append(conds, orm.Exists(squirrel.Select("1").
			From("favorites").
			Where(orm.And(favoriteRecipe.EqColumn(recipeID), favoriteUser.Eq(*requester)).ToSqlizer())))
	}

	if f.IsInShoppingCart {
		conds = append(conds, orm.Exists(squirrel.Select("1").
			From("carts").
			Where(orm.And(cartRecipe.EqColumn(recipeID), cartUser.Eq(*requester)).ToSqlizer())))
	}

	return conds
}

// FilterRecipes returns the page of recipes matching filter, newest first
// with ties broken by descending id.
func (s *Service) FilterRecipes(ctx context.Context, filter RecipeFilter, requester *int64, page Page) (*RecipePage, error) {
	page, err := s.normalizePage(page)
	if err != nil {
		return nil, err
	}

	q := s.store.Recipes.Query(ctx)
	for _, cond := range filter.conditions(requester) {
		q.Where(cond)
	}

	count, err := q.Count()
	if err != nil {
		return nil, err
	}

	q.OrderBy(recipePubDate.Desc(), recipeID.Desc())
	if !page.Unpaged {
		q.Limit(uint64(page.Size)).Offset(page.offset())
	}

	recipes, err := q.Find()
	if err != nil {
		return nil, err
	}

	details, err := s.hydrate(ctx, recipes, requester)
	if err != nil {
		return nil, err
	}

	return &RecipePage{Count: count, Page: page, Results: details}, nil
}

package kitchen

import (
	"context"
	"time"

	"github.com/eleven-am/foodgram/internal/models"
	"github.com/eleven-am/foodgram/internal/orm"
)

// UserProfile is the public view of a user
type UserProfile struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// IngredientLine is an ingredient of a recipe with its amount
type IngredientLine struct {
	RecipeID        int64  `db:"recipe_id" json:"-"`
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	MeasurementUnit string `db:"measurement_unit" json:"measurement_unit"`
	Amount          int    `db:"amount" json:"amount"`
}

// RecipeDetail is a recipe with its tags, author, ingredient lines and the
// requester's favorite and cart flags.
type RecipeDetail struct {
	ID               int64            `json:"id"`
	Tags             []models.Tag     `json:"tags"`
	Author           UserProfile      `json:"author"`
	Ingredients      []IngredientLine `json:"ingredients"`
	IsFavorited      bool             `json:"is_favorited"`
	IsInShoppingCart bool             `json:"is_in_shopping_cart"`
	Name             string           `json:"name"`
	Image            string           `json:"image"`
	Text             string           `json:"text"`
	CookingTime      int              `json:"cooking_time"`
	PubDate          time.Time        `json:"pub_date"`
}

type recipeTagRow struct {
	RecipeID int64  `db:"recipe_id"`
	ID       int64  `db:"id"`
	Title    string `db:"title"`
	Color    string `db:"color"`
	Slug     string `db:"slug"`
}

type idRow struct {
	ID int64 `db:"id"`
}

func idSet(rows []idRow) map[int64]bool {
	set := make(map[int64]bool, len(rows))
	for _, r := range rows {
		set[r.ID] = true
	}
	return set
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// hydrate loads the related rows of recipes in a fixed number of queries:
// tags, ingredient lines, authors, then the requester's subscriptions,
// favorites and cart.
func (s *Service) hydrate(ctx context.Context, recipes []models.Recipe, requester *int64) ([]RecipeDetail, error) {
	details := make([]RecipeDetail, 0, len(recipes))
	if len(recipes) == 0 {
		return details, nil
	}

	ids := make([]int64, len(recipes))
	authorIDs := make([]int64, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
		authorIDs[i] = r.AuthorID
	}

	tagRows, err := orm.SelectAs[recipeTagRow](
		s.store.RecipeTags.Query(ctx).
			InnerJoin("tags", "tags.id = recipe_tags.tag_id").
			Where(recipeTagRecipe.Any(ids)).
			OrderBy(tagTitle.Asc(), tagID.Asc()),
		"recipe_tags.recipe_id AS recipe_id",
		"tags.id AS id",
		"tags.title AS title",
		"tags.color AS color",
		"tags.slug AS slug",
	)
	if err != nil {
		return nil, err
	}
	tagsByRecipe := make(map[int64][]models.Tag)
	for _, row := range tagRows {
		tagsByRecipe[row.RecipeID] = append(tagsByRecipe[row.RecipeID], models.Tag{
			ID:    row.ID,
			Title: row.Title,
			Color: row.Color,
			Slug:  row.Slug,
		})
	}

	lines, err := s.ingredientLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	linesByRecipe := make(map[int64][]IngredientLine)
	for _, line := range lines {
		linesByRecipe[line.RecipeID] = append(linesByRecipe[line.RecipeID], line)
	}

	authors, err := s.store.Users.Query(ctx).Where(userID.Any(uniqueIDs(authorIDs))).Find()
	if err != nil {
		return nil, err
	}
	profiles, err := s.profiles(ctx, authors, requester)
	if err != nil {
		return nil, err
	}
	profileByID := make(map[int64]UserProfile, len(profiles))
	for _, p := range profiles {
		profileByID[p.ID] = p
	}

	favorited, inCart := map[int64]bool{}, map[int64]bool{}
	if requester != nil {
		rows, err := orm.SelectAs[idRow](
			s.store.Favorites.Query(ctx).Where(orm.And(favoriteUser.Eq(*requester), favoriteRecipe.Any(ids))),
			"favorites.recipe_id AS id",
		)
		if err != nil {
			return nil, err
		}
		favorited = idSet(rows)

		rows, err = orm.SelectAs[idRow](
			s.store.Carts.Query(ctx).Where(orm.And(cartUser.Eq(*requester), cartRecipe.Any(ids))),
			"carts.recipe_id AS id",
		)
		if err != nil {
			return nil, err
		}
		inCart = idSet(rows)
	}

	for _, r := range recipes {
		tags := tagsByRecipe[r.ID]
		if tags == nil {
			tags = []models.Tag{}
		}
		recipeLines := linesByRecipe[r.ID]
		if recipeLines == nil {
			recipeLines = []IngredientLine{}
		}

		details = append(details, RecipeDetail{
			ID:               r.ID,
			Tags:             tags,
			Author:           profileByID[r.AuthorID],
			Ingredients:      recipeLines,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
			PubDate:          r.PubDate,
		})
	}

	return details, nil
}

func (s *Service) ingredientLines(ctx context.Context, recipeIDs []int64) ([]IngredientLine, error) {
	return orm.SelectAs[IngredientLine](
		s.store.RecipeIngredients.Query(ctx).
			InnerJoin("ingredients", "ingredients.id = recipe_ingredients.ingredient_id").
			Where(lineRecipe.Any(recipeIDs)).
			OrderBy(ingredientName.Asc(), ingredientID.Asc()),
		"recipe_ingredients.recipe_id AS recipe_id",
		"ingredients.id AS id",
		"ingredients.name AS name",
		"ingredients.measurement_unit AS measurement_unit",
		"recipe_ingredients.amount AS amount",
	)
}

// profiles converts users to profiles, flagging the authors the requester
// follows.
func (s *Service) profiles(ctx context.Context, users []models.User, requester *int64) ([]UserProfile, error) {
	subscribed := map[int64]bool{}
	if requester != nil && len(users) > 0 {
		ids := make([]int64, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}

		rows, err := orm.SelectAs[idRow](
			s.store.Subscriptions.Query(ctx).Where(orm.And(subscriptionFollower.Eq(*requester), subscriptionAuthor.Any(ids))),
			"subscriptions.author_id AS id",
		)
		if err != nil {
			return nil, err
		}
		subscribed = idSet(rows)
	}

	out := make([]UserProfile, len(users))
	for i, u := range users {
		out[i] = UserProfile{
			ID:           u.ID,
			Email:        u.Email,
			Username:     u.Username,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			IsSubscribed: subscribed[u.ID],
		}
	}
	return out, nil
}

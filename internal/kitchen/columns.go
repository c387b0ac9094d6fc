package kitchen

import (
	"time"

	"github.com/eleven-am/foodgram/internal/orm"
)

func int64Col(table, name string) orm.Column[int64] {
	return orm.Column[int64]{Name: name, Table: table}
}

var (
	userID       = int64Col("users", "id")
	userEmail    = orm.StringColumn{Column: orm.Column[string]{Name: "email", Table: "users"}}
	userUsername = orm.StringColumn{Column: orm.Column[string]{Name: "username", Table: "users"}}

	tagID    = int64Col("tags", "id")
	tagTitle = orm.StringColumn{Column: orm.Column[string]{Name: "title", Table: "tags"}}
	tagSlug  = orm.StringColumn{Column: orm.Column[string]{Name: "slug", Table: "tags"}}

	ingredientID   = int64Col("ingredients", "id")
	ingredientName = orm.StringColumn{Column: orm.Column[string]{Name: "name", Table: "ingredients"}}

	recipeID      = int64Col("recipes", "id")
	recipeAuthor  = int64Col("recipes", "author_id")
	recipePubDate = orm.Column[time.Time]{Name: "pub_date", Table: "recipes"}

	lineRecipe = int64Col("recipe_ingredients", "recipe_id")

	recipeTagRecipe = int64Col("recipe_tags", "recipe_id")

	favoriteUser   = int64Col("favorites", "user_id")
	favoriteRecipe = int64Col("favorites", "recipe_id")

	cartUser   = int64Col("carts", "user_id")
	cartRecipe = int64Col("carts", "recipe_id")

	subscriptionFollower = int64Col("subscriptions", "follower_id")
	subscriptionAuthor   = int64Col("subscriptions", "author_id")
)

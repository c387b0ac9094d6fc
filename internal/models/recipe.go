package models

import (
	"time"
)

// Tag labels recipes, e.g. breakfast or dinner.
type Tag struct {
	_ struct{} `dbdef:"table:tags;index:idx_tags_title,title"`

	ID    int64  `db:"id" json:"id" dbdef:"type:bigserial;primary_key"`
	Title string `db:"title" json:"name" dbdef:"type:varchar(200);not_null"`
	Color string `db:"color" json:"color" dbdef:"type:varchar(7);not_null;default:'#FF0000'"`
	Slug  string `db:"slug" json:"slug" dbdef:"type:varchar(200);not_null;unique"`
}

// Ingredient is a catalogue entry with its measurement unit.
type Ingredient struct {
	_ struct{} `dbdef:"table:ingredients;index:idx_ingredients_name,name"`

	ID              int64  `db:"id" json:"id" dbdef:"type:bigserial;primary_key"`
	Name            string `db:"name" json:"name" dbdef:"type:varchar(200);not_null"`
	MeasurementUnit string `db:"measurement_unit" json:"measurement_unit" dbdef:"type:varchar(10);not_null"`
}

// Recipe is owned by its author; join rows cascade with it.
type Recipe struct {
	_ struct{} `dbdef:"table:recipes;index:idx_recipes_author,author_id;index:idx_recipes_pub_date,pub_date desc;check:ck_recipes_cooking_time,cooking_time >= 1"`

	ID          int64     `db:"id" json:"id" dbdef:"type:bigserial;primary_key"`
	AuthorID    int64     `db:"author_id" json:"-" dbdef:"type:bigint;not_null;foreign_key:users.id;on_delete:CASCADE"`
	Name        string    `db:"name" json:"name" dbdef:"type:varchar(200);not_null"`
	Image       string    `db:"image" json:"image" dbdef:"type:varchar(255);not_null"`
	Text        string    `db:"text" json:"text" dbdef:"type:text;not_null"`
	CookingTime int       `db:"cooking_time" json:"cooking_time" dbdef:"type:smallint;not_null"`
	PubDate     time.Time `db:"pub_date" json:"-" dbdef:"type:timestamptz;not_null;default:now()"`
}

// RecipeIngredient is one ingredient line of a recipe.
type RecipeIngredient struct {
	_ struct{} `dbdef:"table:recipe_ingredients;unique:uk_recipe_ingredients_pair,recipe_id,ingredient_id;check:ck_recipe_ingredients_amount,amount >= 1"`

	ID           int64 `db:"id" json:"-" dbdef:"type:bigserial;primary_key"`
	RecipeID     int64 `db:"recipe_id" json:"-" dbdef:"type:bigint;not_null;foreign_key:recipes.id;on_delete:CASCADE"`
	IngredientID int64 `db:"ingredient_id" json:"id" dbdef:"type:bigint;not_null;foreign_key:ingredients.id;on_delete:CASCADE"`
	Amount       int   `db:"amount" json:"amount" dbdef:"type:integer;not_null"`
}

// RecipeTag links a recipe to a tag.
type RecipeTag struct {
	_ struct{} `dbdef:"table:recipe_tags"`

	RecipeID int64 `db:"recipe_id" dbdef:"type:bigint;not_null;primary_key;foreign_key:recipes.id;on_delete:CASCADE"`
	TagID    int64 `db:"tag_id" dbdef:"type:bigint;not_null;primary_key;foreign_key:tags.id;on_delete:CASCADE"`
}

// Favorite bookmarks a recipe for a user.
type Favorite struct {
	_ struct{} `dbdef:"table:favorites;unique:uk_favorites_pair,user_id,recipe_id"`

	ID        int64     `db:"id" json:"id" dbdef:"type:bigserial;primary_key"`
	UserID    int64     `db:"user_id" json:"user_id" dbdef:"type:bigint;not_null;foreign_key:users.id;on_delete:CASCADE"`
	RecipeID  int64     `db:"recipe_id" json:"recipe_id" dbdef:"type:bigint;not_null;foreign_key:recipes.id;on_delete:CASCADE"`
	CreatedAt time.Time `db:"created_at" json:"created_at" dbdef:"type:timestamptz;not_null;default:now()"`
}

// Cart puts a recipe on a user's shopping list.
type Cart struct {
	_ struct{} `dbdef:"table:carts;unique:uk_carts_pair,user_id,recipe_id"`

	ID        int64     `db:"id" json:"id" dbdef:"type:bigserial;primary_key"`
	UserID    int64     `db:"user_id" json:"user_id" dbdef:"type:bigint;not_null;foreign_key:users.id;on_delete:CASCADE"`
	RecipeID  int64     `db:"recipe_id" json:"recipe_id" dbdef:"type:bigint;not_null;foreign_key:recipes.id;on_delete:CASCADE"`
	CreatedAt time.Time `db:"created_at" json:"created_at" dbdef:"type:timestamptz;not_null;default:now()"`
}

// All lists every persisted model, used by schema generation.
func All() []interface{} {
	return []interface{}{
		User{},
		Subscription{},
		Tag{},
		Ingredient{},
		Recipe{},
		RecipeIngredient{},
		RecipeTag{},
		Favorite{},
		Cart{},
	}
}

package kitchen

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/eleven-am/foodgram/internal/orm"
)

// ShoppingListHeader is the first line of the rendered shopping list
const ShoppingListHeader = "Shopping list:"

// ShoppingItem is one consolidated line of a shopping list
type ShoppingItem struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Total           int64  `json:"total"`
}

type cartLine struct {
	Name            string `db:"name"`
	MeasurementUnit string `db:"measurement_unit"`
	Amount          int64  `db:"amount"`
}

// AggregateShoppingList sums the ingredient lines of every recipe in the
// user's cart, grouped by (name, unit) and sorted by name then unit in
// byte order. An empty cart yields an empty list.
func (s *Service) AggregateShoppingList(ctx context.Context, userID int64) ([]ShoppingItem, error) {
	lines, err := orm.SelectAs[cartLine](
		s.store.Carts.Query(ctx).
			InnerJoin("recipe_ingredients", "recipe_ingredients.recipe_id = carts.recipe_id").
			InnerJoin("ingredients", "ingredients.id = recipe_ingredients.ingredient_id").
			Where(cartUser.Eq(userID)),
		"ingredients.name AS name",
		"ingredients.measurement_unit AS measurement_unit",
		"recipe_ingredients.amount AS amount",
	)
	if err != nil {
		return nil, err
	}

	return aggregateLines(lines), nil
}

func aggregateLines(lines []cartLine) []ShoppingItem {
	type key struct{ name, unit string }

	totals := make(map[key]int64, len(lines))
	for _, line := range lines {
		totals[key{line.Name, line.MeasurementUnit}] += line.Amount
	}

	items := make([]ShoppingItem, 0, len(totals))
	for k, total := range totals {
		items = append(items, ShoppingItem{Name: k.name, MeasurementUnit: k.unit, Total: total})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].MeasurementUnit < items[j].MeasurementUnit
	})

	return items
}

// FormatShoppingList renders the plain-text attachment: the header, then
// one "<name> - <total> <unit>" line per item.
func FormatShoppingList(items []ShoppingItem) string {
	var b strings.Builder
	b.WriteString(ShoppingListHeader)
	for _, item := range items {
		fmt.Fprintf(&b, "\n%s - %d %s", item.Name, item.Total, item.MeasurementUnit)
	}
	return b.String()
}

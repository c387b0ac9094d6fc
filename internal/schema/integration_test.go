package schema_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/foodgram/internal/models"
	"github.com/eleven-am/foodgram/internal/schema"
	"github.com/eleven-am/foodgram/internal/testdb"
)

func TestMigrationRoundTrip(t *testing.T) {
	tdb := testdb.New(t)
	ctx := context.Background()

	target, err := schema.NewGenerator().FromModels(models.All()...)
	require.NoError(t, err)

	planner := schema.NewPlanner(os.Getenv(testdb.URLEnv))
	plan, err := planner.Plan(ctx, tdb.DB.DB, target)
	require.NoError(t, err)
	require.False(t, plan.Empty())
	assert.Empty(t, plan.Destructive())

	require.NoError(t, schema.Apply(ctx, tdb.DB, plan.Statements))

	ta := testdb.NewTableAssertions(t, tdb)
	for _, table := range []string{"users", "subscriptions", "tags", "ingredients", "recipes", "recipe_ingredients", "recipe_tags", "favorites", "carts"} {
		ta.AssertTableExists(table)
	}
	ta.AssertColumnType("recipes", "cooking_time", "smallint")
	ta.AssertIndexExists("idx_recipes_pub_date")
	ta.AssertConstraintExists("subscriptions", "ck_subscriptions_no_self")
	ta.AssertConstraintExists("favorites", "uk_favorites_pair")

	again, err := planner.Plan(ctx, tdb.DB.DB, target)
	require.NoError(t, err)
	assert.True(t, again.Empty(), "second plan should be empty, got %v", again.Statements)
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eleven-am/foodgram/internal/kitchen"
	"github.com/eleven-am/foodgram/internal/store"
)

var shoppingUser int64

var shoppingListCmd = &cobra.Command{
	Use:   "shopping-list",
	Short: "Print a user's aggregated shopping list",
	Long: `Sum the ingredients of every recipe in the user's shopping cart and
print the list in the same format as the download endpoint.`,
	RunE: runShoppingList,
}

func init() {
	shoppingListCmd.Flags().Int64Var(&shoppingUser, "user", 0, "User id whose cart is aggregated")
	_ = shoppingListCmd.MarkFlagRequired("user")
}

func runShoppingList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := store.New(db, store.LoggingMiddleware())
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	items, err := kitchen.NewService(st).AggregateShoppingList(ctx, shoppingUser)
	if err != nil {
		return fmt.Errorf("failed to aggregate shopping list: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), kitchen.FormatShoppingList(items))
	return nil
}

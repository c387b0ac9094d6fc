package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eleven-am/foodgram/internal/logger"
	"github.com/eleven-am/foodgram/pkg/foodgram"
)

// Global configuration variables
var (
	configFile  string
	config      *Config
	databaseURL string
	debug       bool
	verbose     bool
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "foodgram",
		Short: "Foodgram - recipe sharing backend",
		Long: `Foodgram serves the recipe sharing API: recipes with tags and
ingredients, favorites, shopping carts and author subscriptions.

Commands:
- serve the HTTP API
- plan and apply schema migrations
- render a user's shopping list`,
		Version:       foodgram.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := LoadConfig(configFile)
			if err != nil {
				if configFile != "" && cmd != initCmd {
					return err
				}
				logger.CLI().WithError(err).Warn("failed to load config file")
			}
			if loaded == nil {
				loaded = DefaultConfig()
			}
			config = loaded

			if err := logger.Init(logger.Config{Level: config.Log.Level, Format: config.Log.Format}); err != nil {
				return fmt.Errorf("invalid log configuration: %w", err)
			}
			logger.SetVerbosity(debug, verbose)

			if databaseURL == "" {
				databaseURL = config.Database.URL
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: foodgram.yaml)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "url", "", "database connection URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(shoppingListCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eleven-am/foodgram/internal/logger"
	"github.com/eleven-am/foodgram/internal/models"
	"github.com/eleven-am/foodgram/internal/schema"
)

var (
	migrateOutput       string
	dryRun              bool
	createDBIfNotExists bool
	allowDestructive    bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date",
	Long: `Compare the schema generated from the recipe models with the live
database and apply the difference. The plan is computed by materialising the
target schema in a scratch database and diffing both with atlas.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateOutput, "output", "", "Also write the migration SQL to this file")
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the migration without applying it")
	migrateCmd.Flags().BoolVar(&createDBIfNotExists, "create-if-not-exists", false, "Create the database if it does not exist")
	migrateCmd.Flags().BoolVar(&allowDestructive, "allow-destructive", false, "Allow potentially destructive operations")
}

// renderPlan writes the plan as an SQL script
func renderPlan(w io.Writer, plan *schema.Plan) {
	if plan.Empty() {
		fmt.Fprintln(w, "-- schema is up to date")
		return
	}
	for _, desc := range plan.Destructive() {
		fmt.Fprintf(w, "-- DESTRUCTIVE: %s\n", desc)
	}
	for _, stmt := range plan.Statements {
		fmt.Fprintf(w, "%s;\n", strings.TrimSuffix(stmt, ";"))
	}
}

// checkDestructive refuses plans that drop data unless allowed
func checkDestructive(plan *schema.Plan, allowed bool) error {
	destructive := plan.Destructive()
	if len(destructive) == 0 || allowed {
		return nil
	}
	return fmt.Errorf("migration contains %d destructive change(s): %s; rerun with --allow-destructive",
		len(destructive), strings.Join(destructive, ", "))
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	log := logger.Migration()

	dsn, err := requireDatabaseURL()
	if err != nil {
		return err
	}

	if createDBIfNotExists {
		if _, err := schema.NewTempDBManager(dsn).EnsureDatabase(ctx); err != nil {
			return err
		}
	}

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	target, err := schema.NewGenerator().FromModels(models.All()...)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	log.Info("computing migration plan")
	plan, err := schema.NewPlanner(dsn).Plan(ctx, db.DB, target)
	if err != nil {
		return fmt.Errorf("failed to plan migration: %w", err)
	}

	renderPlan(cmd.OutOrStdout(), plan)
	if plan.Empty() {
		return nil
	}

	if migrateOutput != "" {
		f, err := os.Create(migrateOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		renderPlan(f, plan)
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
	}

	if err := checkDestructive(plan, allowDestructive); err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "-- dry run: nothing applied")
		return nil
	}

	if err := schema.Apply(ctx, db, plan.Statements); err != nil {
		return fmt.Errorf("failed to apply migration: %w", err)
	}

	log.WithField("statements", len(plan.Statements)).Info("migration applied")
	return nil
}

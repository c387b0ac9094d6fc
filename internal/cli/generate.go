package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eleven-am/foodgram/internal/models"
	"github.com/eleven-am/foodgram/internal/schema"
)

var generateOutput string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the schema SQL from the recipe models",
	Long: `Generate the CREATE TABLE and CREATE INDEX statements for the recipe
models without requiring a database connection. Writes to stdout when
--output is "-".`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateOutput, "output", "schema.sql", "Output file for schema SQL")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	target, err := schema.NewGenerator().FromModels(models.All()...)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	ddl, err := target.DDL()
	if err != nil {
		return fmt.Errorf("failed to generate schema SQL: %w", err)
	}

	if generateOutput == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), ddl)
		return err
	}

	outputPath, err := filepath.Abs(generateOutput)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(ddl), 0644); err != nil {
		return fmt.Errorf("failed to write SQL file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Schema written to: %s\n", outputPath)
	return nil
}

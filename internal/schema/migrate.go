package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/foodgram/internal/logger"
)

// Plan is the set of changes that bring a database to the target schema
type Plan struct {
	Changes    []atlas.Change
	Statements []string
}

// Empty reports whether the database already matches
func (p *Plan) Empty() bool {
	return len(p.Changes) == 0
}

// Destructive lists the changes that drop data
func (p *Plan) Destructive() []string {
	_, descriptions := CountDestructiveChanges(p.Changes)
	return descriptions
}

// Planner diffs a live database against the schema generated from models
type Planner struct {
	tempDB *TempDBManager
	log    logger.Logger
}

// NewPlanner uses databaseURL's server for the scratch database
func NewPlanner(databaseURL string) *Planner {
	return &Planner{
		tempDB: NewTempDBManager(databaseURL),
		log:    logger.Migration(),
	}
}

// Plan applies target DDL to a scratch database, inspects both sides with
// atlas and returns the statements that migrate current.
func (p *Planner) Plan(ctx context.Context, current *sql.DB, target *Schema) (*Plan, error) {
	ddl, err := target.DDL()
	if err != nil {
		return nil, err
	}

	currentDriver, err := postgres.Open(current)
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}
	currentRealm, err := currentDriver.InspectRealm(ctx, &atlas.InspectRealmOption{Schemas: []string{"public"}})
	if err != nil {
		return nil, fmt.Errorf("failed to inspect current schema: %w", err)
	}

	name := fmt.Sprintf("foodgram_plan_%d", time.Now().UnixNano())
	tempDB, cleanup, err := p.tempDB.CreateTempDB(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp database: %w", err)
	}
	defer cleanup()

	if _, err := tempDB.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to execute DDL in temp database: %w", err)
	}

	targetDriver, err := postgres.Open(tempDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create target driver: %w", err)
	}
	targetRealm, err := targetDriver.InspectRealm(ctx, &atlas.InspectRealmOption{Schemas: []string{"public"}})
	if err != nil {
		return nil, fmt.Errorf("failed to inspect target schema: %w", err)
	}

	changes, err := currentDriver.RealmDiff(currentRealm, targetRealm)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate diff: %w", err)
	}

	plan := &Plan{Changes: changes}
	if len(changes) == 0 {
		return plan, nil
	}

	if plan.Statements, err = GenerateAtlasSQL(ctx, currentDriver, changes); err != nil {
		return nil, fmt.Errorf("failed to generate SQL: %w", err)
	}

	p.log.Info("planned %d changes (%d statements)", len(changes), len(plan.Statements))
	return plan, nil
}

// GenerateAtlasSQL renders changes with the driver's planner
func GenerateAtlasSQL(ctx context.Context, driver migrate.Driver, changes []atlas.Change) ([]string, error) {
	plan, err := driver.PlanChanges(ctx, "", changes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}

	statements := make([]string, len(plan.Changes))
	for i, change := range plan.Changes {
		statements[i] = change.Cmd
		if change.Comment != "" {
			statements[i] = fmt.Sprintf("-- %s\n%s", change.Comment, change.Cmd)
		}
	}
	return statements, nil
}

// Apply runs statements in one transaction
func Apply(ctx context.Context, db *sqlx.DB, statements []string) (err error) {
	logger.StartProgress("migrate")
	defer func() { logger.EndProgress(err == nil) }()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}

	for i, stmt := range statements {
		logger.UpdateProgress(fmt.Sprintf("statement %d/%d", i+1, len(statements)))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("statement %d failed: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

// IsDestructiveChange reports whether change drops a table, column, index
// or foreign key, directly or inside a table modification.
func IsDestructiveChange(change atlas.Change) bool {
	switch c := change.(type) {
	case *atlas.DropTable, *atlas.DropColumn, *atlas.DropIndex, *atlas.DropForeignKey, *atlas.DropCheck:
		return true
	case *atlas.ModifyTable:
		for _, sub := range c.Changes {
			if IsDestructiveChange(sub) {
				return true
			}
		}
	}
	return false
}

func DescribeChange(change atlas.Change) string {
	switch c := change.(type) {
	case *atlas.AddTable:
		return fmt.Sprintf("Create table %s", c.T.Name)
	case *atlas.DropTable:
		return fmt.Sprintf("Drop table %s", c.T.Name)
	case *atlas.ModifyTable:
		return fmt.Sprintf("Modify table %s (%d changes)", c.T.Name, len(c.Changes))
	case *atlas.AddColumn:
		return fmt.Sprintf("Add column %s", c.C.Name)
	case *atlas.DropColumn:
		return fmt.Sprintf("Drop column %s", c.C.Name)
	case *atlas.ModifyColumn:
		return fmt.Sprintf("Modify column %s", c.To.Name)
	case *atlas.AddIndex:
		return fmt.Sprintf("Add index %s", c.I.Name)
	case *atlas.DropIndex:
		return fmt.Sprintf("Drop index %s", c.I.Name)
	case *atlas.AddForeignKey:
		return fmt.Sprintf("Add foreign key %s", c.F.Symbol)
	case *atlas.DropForeignKey:
		return fmt.Sprintf("Drop foreign key %s", c.F.Symbol)
	case *atlas.AddCheck:
		return fmt.Sprintf("Add check %s", c.C.Name)
	case *atlas.DropCheck:
		return fmt.Sprintf("Drop check %s", c.C.Name)
	default:
		return fmt.Sprintf("Change type %T", change)
	}
}

func CountDestructiveChanges(changes []atlas.Change) (count int, descriptions []string) {
	for _, change := range changes {
		if IsDestructiveChange(change) {
			count++
			descriptions = append(descriptions, DescribeChange(change))
		}
	}
	return count, descriptions
}

package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/eleven-am/foodgram/internal/parser"
)

// Column is a column of the target schema
type Column struct {
	Name         string
	Type         string
	IsNullable   bool
	DefaultValue *string
	IsPrimaryKey bool
	IsUnique     bool
	ForeignKey   *ForeignKeyRef
}

// ForeignKeyRef is the target of a foreign key column
type ForeignKeyRef struct {
	ReferencedTable  string
	ReferencedColumn string
	OnDelete         string
	OnUpdate         string
}

// Index is a non-constraint index
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// Constraint is a named UNIQUE or CHECK table constraint
type Constraint struct {
	Name       string
	Type       string // UNIQUE or CHECK
	Definition string
	Columns    []string
}

// Table is a table of the target schema
type Table struct {
	Name        string
	Columns     []Column
	Indexes     []Index
	Constraints []Constraint
}

// PrimaryKey returns the primary key columns in declaration order
func (t Table) PrimaryKey() []string {
	var cols []string
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// Schema is the complete target schema
type Schema struct {
	Tables map[string]Table
}

// Generator converts parsed model definitions into a Schema
type Generator struct {
	tagParser *parser.TagParser
}

func NewGenerator() *Generator {
	return &Generator{tagParser: parser.NewTagParser()}
}

// FromModels parses the models and generates their schema
func (g *Generator) FromModels(models ...interface{}) (*Schema, error) {
	tables, err := parser.NewStructParser().ParseModels(models...)
	if err != nil {
		return nil, err
	}
	return g.Generate(tables)
}

// Generate converts table definitions to a schema
func (g *Generator) Generate(tables []parser.TableDefinition) (*Schema, error) {
	s := &Schema{Tables: make(map[string]Table, len(tables))}

	for _, def := range tables {
		if _, dup := s.Tables[def.TableName]; dup {
			return nil, fmt.Errorf("table %s declared twice", def.TableName)
		}
		table, err := g.generateTable(def)
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for table %s: %w", def.TableName, err)
		}
		s.Tables[table.Name] = table
	}

	return s, nil
}

func (g *Generator) generateTable(def parser.TableDefinition) (Table, error) {
	table := Table{Name: def.TableName}

	for _, field := range def.Fields {
		column, err := g.generateColumn(field)
		if err != nil {
			return table, fmt.Errorf("column %s: %w", field.DBName, err)
		}
		table.Columns = append(table.Columns, column)
	}

	if err := g.processTableLevel(def.TableLevel, &table); err != nil {
		return table, err
	}

	if len(table.PrimaryKey()) == 0 {
		return table, fmt.Errorf("no primary key")
	}

	return table, nil
}

func (g *Generator) generateColumn(field parser.FieldDefinition) (Column, error) {
	column := Column{Name: field.DBName}

	pgType, err := g.columnType(field)
	if err != nil {
		return column, err
	}
	column.Type = pgType

	column.IsPrimaryKey = g.tagParser.HasFlag(field.DBDef, "primary_key")
	column.IsNullable = !column.IsPrimaryKey &&
		(field.Type.Kind() == reflect.Ptr || !g.tagParser.HasFlag(field.DBDef, "not_null"))
	column.IsUnique = g.tagParser.HasFlag(field.DBDef, "unique")

	if def := g.tagParser.GetDefault(field.DBDef); def != "" {
		column.DefaultValue = &def
	}

	if ref := g.tagParser.GetForeignKey(field.DBDef); ref != "" {
		table, col, ok := strings.Cut(ref, ".")
		if !ok {
			return column, fmt.Errorf("foreign key must be in format 'table.column', got: %s", ref)
		}
		column.ForeignKey = &ForeignKeyRef{
			ReferencedTable:  strings.TrimSpace(table),
			ReferencedColumn: strings.TrimSpace(col),
			OnDelete:         referentialAction(field.DBDef["on_delete"]),
			OnUpdate:         referentialAction(field.DBDef["on_update"]),
		}
	}

	return column, nil
}

func referentialAction(action string) string {
	if action == "" {
		return "NO ACTION"
	}
	return strings.ToUpper(action)
}

var timeType = reflect.TypeOf(time.Time{})

// columnType prefers the explicit dbdef type and falls back to the Go type
func (g *Generator) columnType(field parser.FieldDefinition) (string, error) {
	if t := g.tagParser.GetType(field.DBDef); t != "" {
		return strings.ToUpper(t), nil
	}

	t := field.Type
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return "TIMESTAMPTZ", nil
	}

	switch t.Kind() {
	case reflect.String:
		return "TEXT", nil
	case reflect.Int16:
		return "SMALLINT", nil
	case reflect.Int, reflect.Int32:
		return "INTEGER", nil
	case reflect.Int64:
		return "BIGINT", nil
	case reflect.Bool:
		return "BOOLEAN", nil
	case reflect.Float32:
		return "REAL", nil
	case reflect.Float64:
		return "DOUBLE PRECISION", nil
	}
	return "", fmt.Errorf("no column type for Go type %s", t)
}

// processTableLevel reads index, unique and check declarations. Each key
// may hold several ";"-separated "name,..." definitions.
func (g *Generator) processTableLevel(attrs map[string]string, table *Table) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, def := range strings.Split(attrs[key], ";") {
			def = strings.TrimSpace(def)
			if def == "" {
				continue
			}

			switch key {
			case "table":
			case "index":
				index, err := parseIndex(def)
				if err != nil {
					return err
				}
				table.Indexes = append(table.Indexes, index)
			case "unique":
				name, cols, err := splitDefinition(def)
				if err != nil {
					return fmt.Errorf("unique constraint: %w", err)
				}
				table.Constraints = append(table.Constraints, Constraint{
					Name:       name,
					Type:       "UNIQUE",
					Definition: fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")),
					Columns:    cols,
				})
			case "check":
				name, expr, ok := strings.Cut(def, ",")
				if !ok || strings.TrimSpace(expr) == "" {
					return fmt.Errorf("check constraint must have name and expression: %s", def)
				}
				table.Constraints = append(table.Constraints, Constraint{
					Name:       strings.TrimSpace(name),
					Type:       "CHECK",
					Definition: fmt.Sprintf("CHECK (%s)", strings.TrimSpace(expr)),
				})
			default:
				return fmt.Errorf("unknown table-level attribute '%s'", key)
			}
		}
	}

	return nil
}

func splitDefinition(def string) (string, []string, error) {
	parts := strings.Split(def, ",")
	if len(parts) < 2 {
		return "", nil, fmt.Errorf("definition must have a name and at least one column: %s", def)
	}

	cols := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			cols = append(cols, p)
		}
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("definition must have at least one column: %s", def)
	}
	return strings.TrimSpace(parts[0]), cols, nil
}

// parseIndex reads "idx_name,col1,col2 desc[,unique]"
func parseIndex(def string) (Index, error) {
	name, parts, err := splitDefinition(def)
	if err != nil {
		return Index{}, fmt.Errorf("index: %w", err)
	}

	index := Index{Name: name}
	for _, part := range parts {
		lower := strings.ToLower(part)
		switch {
		case lower == "unique":
			index.IsUnique = true
		case strings.HasSuffix(lower, " desc"):
			index.Columns = append(index.Columns, part[:len(part)-5]+" DESC")
		case strings.HasSuffix(lower, " asc"):
			index.Columns = append(index.Columns, part[:len(part)-4]+" ASC")
		default:
			index.Columns = append(index.Columns, part)
		}
	}
	if len(index.Columns) == 0 {
		return Index{}, fmt.Errorf("index %s has no columns", name)
	}
	return index, nil
}

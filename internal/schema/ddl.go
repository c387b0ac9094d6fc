package schema

import (
	"fmt"
	"strings"
)

// DDL renders idempotent CREATE statements for every table and index, in
// dependency order.
func (s *Schema) DDL() (string, error) {
	statements, err := s.Statements()
	if err != nil {
		return "", err
	}
	return strings.Join(statements, "\n\n") + "\n", nil
}

// Statements is DDL split into individual statements
func (s *Schema) Statements() ([]string, error) {
	tables, err := s.SortTables()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, t := range tables {
		out = append(out, createTable(t))
	}
	for _, t := range tables {
		for _, idx := range t.Indexes {
			out = append(out, createIndex(t.Name, idx))
		}
	}
	return out, nil
}

func createTable(t Table) string {
	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, "    "+columnDefinition(c))
	}

	lines = append(lines, fmt.Sprintf("    CONSTRAINT %s_pkey PRIMARY KEY (%s)", t.Name, strings.Join(t.PrimaryKey(), ", ")))

	for _, c := range t.Columns {
		if c.IsUnique {
			lines = append(lines, fmt.Sprintf("    CONSTRAINT %s_%s_key UNIQUE (%s)", t.Name, c.Name, c.Name))
		}
	}
	for _, c := range t.Constraints {
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s %s", c.Name, c.Definition))
	}
	for _, c := range t.Columns {
		if fk := c.ForeignKey; fk != nil {
			lines = append(lines, fmt.Sprintf("    CONSTRAINT fk_%s_%s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
				t.Name, c.Name, c.Name, fk.ReferencedTable, fk.ReferencedColumn, fk.OnDelete, fk.OnUpdate))
		}
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);", t.Name, strings.Join(lines, ",\n"))
}

func columnDefinition(c Column) string {
	def := c.Name + " " + c.Type
	if !c.IsNullable {
		def += " NOT NULL"
	}
	if c.DefaultValue != nil {
		def += " DEFAULT " + *c.DefaultValue
	}
	return def
}

func createIndex(table string, idx Index) string {
	unique := ""
	if idx.IsUnique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s);", unique, idx.Name, table, strings.Join(idx.Columns, ", "))
}

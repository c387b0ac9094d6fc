package schema

import (
	"fmt"
	"sort"
)

// SortTables returns tables ordered so that every table follows the tables
// it references. Ties are broken by name for stable output.
func (s *Schema) SortTables() ([]Table, error) {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	sorted := make([]Table, 0, len(names))
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return fmt.Errorf("circular dependency detected involving table %s", name)
		}
		table, ok := s.Tables[name]
		if !ok {
			return fmt.Errorf("referenced table %s is not part of the schema", name)
		}

		visiting[name] = true
		for _, dep := range dependencies(table) {
			if dep != name {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		visiting[name] = false
		visited[name] = true
		sorted = append(sorted, table)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	return sorted, nil
}

func dependencies(table Table) []string {
	seen := make(map[string]bool)
	var deps []string
	for _, col := range table.Columns {
		if col.ForeignKey != nil && !seen[col.ForeignKey.ReferencedTable] {
			seen[col.ForeignKey.ReferencedTable] = true
			deps = append(deps, col.ForeignKey.ReferencedTable)
		}
	}
	sort.Strings(deps)
	return deps
}

package orm

import "strings"

// JoinType represents different types of SQL joins
type JoinType string

const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
)

// join represents a SQL join clause (internal use only)
type join struct {
	Type      JoinType
	Table     string
	Condition string
}

func (j join) clause() string {
	return j.Table + " ON " + j.Condition
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}

package parser

import (
	"fmt"
	"strings"
)

// TagParser handles parsing of dbdef struct tags
type TagParser struct{}

// NewTagParser creates a new tag parser instance
func NewTagParser() *TagParser {
	return &TagParser{}
}

// ParseDBDefTag parses a dbdef tag string into a map of attributes.
// Format: "type:bigint;not_null;foreign_key:users.id;on_delete:CASCADE".
// Repeated keys are joined with ";" so table-level tags may declare several
// indexes or constraints.
func (p *TagParser) ParseDBDefTag(tagValue string) map[string]string {
	attributes := make(map[string]string)

	if tagValue == "" {
		return attributes
	}

	for _, part := range strings.Split(tagValue, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, hasValue := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		if !hasValue {
			attributes[key] = ""
			continue
		}

		value = strings.TrimSpace(value)
		if existing, exists := attributes[key]; exists {
			attributes[key] = existing + ";" + value
		} else {
			attributes[key] = value
		}
	}

	return attributes
}

// ValidateDBDefTag validates a column-level dbdef tag for common errors
func (p *TagParser) ValidateDBDefTag(tagValue string) error {
	attributes := p.ParseDBDefTag(tagValue)

	for key, value := range attributes {
		switch key {
		case "type":
			if err := p.validateType(value); err != nil {
				return fmt.Errorf("invalid type '%s': %w", value, err)
			}
		case "fk", "foreign_key":
			if err := p.validateForeignKey(value); err != nil {
				return fmt.Errorf("invalid foreign key '%s': %w", value, err)
			}
		case "primary_key", "not_null", "unique", "auto_increment":
			if value != "" {
				return fmt.Errorf("flag attribute '%s' should not have a value", key)
			}
		case "on_delete", "on_update":
			if err := p.validateOnDeleteUpdate(value); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", key, value, err)
			}
		case "default", "check", "index":
		default:
			return fmt.Errorf("unknown dbdef attribute '%s'", key)
		}
	}

	return nil
}

func (p *TagParser) validateType(typeValue string) error {
	if typeValue == "" {
		return fmt.Errorf("type cannot be empty")
	}

	validTypes := map[string]bool{
		"smallint": true, "integer": true, "bigint": true,
		"smallserial": true, "serial": true, "bigserial": true,
		"numeric": true, "real": true, "double precision": true,
		"char": true, "varchar": true, "text": true,
		"timestamp": true, "timestamptz": true, "date": true,
		"boolean": true, "bool": true,
		"uuid": true, "jsonb": true,
	}

	baseType := typeValue
	if idx := strings.Index(typeValue, "("); idx != -1 {
		baseType = typeValue[:idx]
	}

	if !validTypes[strings.ToLower(baseType)] {
		return fmt.Errorf("unknown PostgreSQL type: %s", typeValue)
	}

	return nil
}

func (p *TagParser) validateForeignKey(fkValue string) error {
	table, column, ok := strings.Cut(fkValue, ".")
	if !ok || strings.Contains(column, ".") {
		return fmt.Errorf("foreign key must be in format 'table.column', got: %s", fkValue)
	}

	if !isValidIdentifier(strings.TrimSpace(table)) {
		return fmt.Errorf("invalid table name: %s", table)
	}
	if !isValidIdentifier(strings.TrimSpace(column)) {
		return fmt.Errorf("invalid column name: %s", column)
	}

	return nil
}

func (p *TagParser) validateOnDeleteUpdate(action string) error {
	switch strings.ToUpper(action) {
	case "CASCADE", "SET NULL", "SET DEFAULT", "RESTRICT", "NO ACTION":
		return nil
	}
	return fmt.Errorf("must be one of CASCADE, SET NULL, SET DEFAULT, RESTRICT, NO ACTION")
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}

// GetType returns the column type attribute
func (p *TagParser) GetType(attributes map[string]string) string {
	return attributes["type"]
}

// HasFlag reports whether a valueless attribute is set
func (p *TagParser) HasFlag(attributes map[string]string, flag string) bool {
	_, exists := attributes[flag]
	return exists
}

// GetDefault returns the default expression, if any
func (p *TagParser) GetDefault(attributes map[string]string) string {
	return attributes["default"]
}

// GetForeignKey returns the referenced "table.column", accepting both spellings
func (p *TagParser) GetForeignKey(attributes map[string]string) string {
	if fk, exists := attributes["foreign_key"]; exists {
		return fk
	}
	return attributes["fk"]
}

package parser

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// FieldDefinition represents a struct field with database metadata
type FieldDefinition struct {
	Name   string
	DBName string
	Index  []int
	Type   reflect.Type
	DBDef  map[string]string
}

// IsPrimaryKey reports whether the column is part of the primary key
func (f FieldDefinition) IsPrimaryKey() bool {
	_, ok := f.DBDef["primary_key"]
	return ok
}

// IsGenerated reports whether the database assigns the value on insert
func (f FieldDefinition) IsGenerated() bool {
	if _, ok := f.DBDef["auto_increment"]; ok {
		return true
	}
	switch strings.ToLower(f.DBDef["type"]) {
	case "serial", "bigserial", "smallserial":
		return true
	}
	return false
}

// HasDefault reports whether the column carries a default expression
func (f FieldDefinition) HasDefault() bool {
	_, ok := f.DBDef["default"]
	return ok
}

// TableDefinition represents a complete table structure
type TableDefinition struct {
	StructName string
	TableName  string
	Fields     []FieldDefinition
	TableLevel map[string]string
}

// PrimaryKeys returns the primary key column names in declaration order
func (t TableDefinition) PrimaryKeys() []string {
	var keys []string
	for _, f := range t.Fields {
		if f.IsPrimaryKey() {
			keys = append(keys, f.DBName)
		}
	}
	return keys
}

// Field looks up a field by column name
func (t TableDefinition) Field(column string) (FieldDefinition, bool) {
	for _, f := range t.Fields {
		if f.DBName == column {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// StructParser reads db and dbdef tags from model structs
type StructParser struct {
	tagParser *TagParser
}

func NewStructParser() *StructParser {
	return &StructParser{
		tagParser: NewTagParser(),
	}
}

// ParseModels parses every model, failing on the first invalid one
func (p *StructParser) ParseModels(models ...interface{}) ([]TableDefinition, error) {
	tables := make([]TableDefinition, 0, len(models))
	for _, model := range models {
		table, err := p.ParseModel(model)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// ParseModel parses a struct value, pointer or reflect.Type
func (p *StructParser) ParseModel(model interface{}) (TableDefinition, error) {
	var t reflect.Type
	switch m := model.(type) {
	case reflect.Type:
		t = m
	default:
		t = reflect.TypeOf(model)
	}
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return TableDefinition{}, fmt.Errorf("model must be a struct, got %v", t)
	}

	table := TableDefinition{
		StructName: t.Name(),
		TableName:  p.deriveTableName(t.Name()),
		TableLevel: make(map[string]string),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Name == "_" {
			for k, v := range p.tagParser.ParseDBDefTag(field.Tag.Get("dbdef")) {
				table.TableLevel[k] = v
			}
			continue
		}

		dbName := field.Tag.Get("db")
		if dbName == "" || dbName == "-" || !field.IsExported() {
			continue
		}

		dbdefTag := field.Tag.Get("dbdef")
		if err := p.tagParser.ValidateDBDefTag(dbdefTag); err != nil {
			return TableDefinition{}, fmt.Errorf("%s.%s: %w", t.Name(), field.Name, err)
		}

		table.Fields = append(table.Fields, FieldDefinition{
			Name:   field.Name,
			DBName: dbName,
			Index:  field.Index,
			Type:   field.Type,
			DBDef:  p.tagParser.ParseDBDefTag(dbdefTag),
		})
	}

	if name, ok := table.TableLevel["table"]; ok && name != "" {
		table.TableName = name
	}

	if len(table.Fields) == 0 {
		return TableDefinition{}, fmt.Errorf("%s: no database columns", t.Name())
	}

	return table, nil
}

// deriveTableName turns RecipeIngredient into recipe_ingredients
func (p *StructParser) deriveTableName(structName string) string {
	snake := toSnakeCase(structName)
	switch {
	case strings.HasSuffix(snake, "s"):
		return snake + "es"
	case strings.HasSuffix(snake, "y"):
		return strings.TrimSuffix(snake, "y") + "ies"
	default:
		return snake + "s"
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

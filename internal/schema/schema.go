// Package schema describes the static, immutable shape of a table.
package schema

import (
	"fmt"

	"github.com/coleman-db/coleman/internal/colerr"
	"github.com/coleman-db/coleman/internal/value"
)

// ColumnDef names and types a single column. Names are free-form UTF-8;
// uniqueness within a Schema is assumed by callers, not enforced here.
type ColumnDef struct {
	Name string
	Type value.ColumnType
}

// Schema is an ordered, immutable list of ColumnDefs.
type Schema struct {
	columns []ColumnDef
}

// New duplicates the given column names into owned storage and returns a Schema.
func New(columns []ColumnDef) Schema {
	cp := make([]ColumnDef, len(columns))
	for i, c := range columns {
		cp[i] = ColumnDef{Name: string([]byte(c.Name)), Type: c.Type}
	}
	return Schema{columns: cp}
}

// ColumnCount returns the number of columns.
func (s Schema) ColumnCount() int { return len(s.columns) }

// Columns returns the ordered column definitions. Callers must not mutate
// the returned slice's contents.
func (s Schema) Columns() []ColumnDef { return s.columns }

// Find returns the index of the first column named name, or false if absent.
func (s Schema) Find(name string) (int, bool) {
	for i, c := range s.columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// ColumnType returns the type of column i, failing with ErrColumnIndexOOB if
// i is out of range.
func (s Schema) ColumnType(i int) (value.ColumnType, error) {
	if i < 0 || i >= len(s.columns) {
		return 0, fmt.Errorf("schema: column %d: %w", i, colerr.ErrColumnIndexOOB)
	}
	return s.columns[i].Type, nil
}

// ColumnName returns the name of column i, failing with ErrColumnIndexOOB if
// i is out of range.
func (s Schema) ColumnName(i int) (string, error) {
	if i < 0 || i >= len(s.columns) {
		return "", fmt.Errorf("schema: column %d: %w", i, colerr.ErrColumnIndexOOB)
	}
	return s.columns[i].Name, nil
}

// Equal reports structural equality of two schemas: same column names and
// types, in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.columns) != len(o.columns) {
		return false
	}
	for i, c := range s.columns {
		if c.Name != o.columns[i].Name || c.Type != o.columns[i].Type {
			return false
		}
	}
	return true
}

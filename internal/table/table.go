// Package table implements the columnar Table: a named schema plus one
// Column per declared column and a row count.
package table

import (
	"fmt"

	"github.com/coleman-db/coleman/internal/colerr"
	"github.com/coleman-db/coleman/internal/column"
	"github.com/coleman-db/coleman/internal/schema"
	"github.com/coleman-db/coleman/internal/value"
)

// Table is a named schema backed by one Column per schema entry.
type Table struct {
	Name    string
	Schema  schema.Schema
	columns []column.Column
	rowCnt  int
}

// New creates an empty table for the given name and schema.
func New(name string, s schema.Schema) *Table {
	cols := make([]column.Column, s.ColumnCount())
	for i, cd := range s.Columns() {
		cols[i] = column.New(cd.Type)
	}
	return &Table{Name: name, Schema: s, columns: cols}
}

// RowCount returns the number of rows currently stored.
func (t *Table) RowCount() int { return t.rowCnt }

// AppendRecord validates values against the schema and, if they match,
// appends one value to every column and increments the row count. A
// rejected row (ColumnCountMismatch or TypeMismatch) leaves every column's
// length unchanged: the length/type check runs over the whole row before
// any column is mutated.
func (t *Table) AppendRecord(values []value.Value) error {
	if len(values) != t.Schema.ColumnCount() {
		return fmt.Errorf("table %q: have %d values, want %d: %w",
			t.Name, len(values), t.Schema.ColumnCount(), colerr.ErrColumnCountMismatch)
	}

	for i, v := range values {
		wantType, err := t.Schema.ColumnType(i)
		if err != nil {
			return err
		}
		if v.Type != wantType {
			name, _ := t.Schema.ColumnName(i)
			return fmt.Errorf("table %q: column %q: have %v, want %v: %w",
				t.Name, name, v.Type, wantType, colerr.ErrTypeMismatch)
		}
	}

	for i, v := range values {
		t.columns[i].Append(v)
	}
	t.rowCnt++
	return nil
}

// GetValue returns the value at (row, col), bounds-checked.
func (t *Table) GetValue(row, col int) (value.Value, error) {
	if row < 0 || row >= t.rowCnt {
		return value.Value{}, fmt.Errorf("table %q: row %d: %w", t.Name, row, colerr.ErrRowIndexOOB)
	}
	if col < 0 || col >= len(t.columns) {
		return value.Value{}, fmt.Errorf("table %q: column %d: %w", t.Name, col, colerr.ErrColumnIndexOOB)
	}
	return t.columns[col].Get(row)
}

// GetRow materializes a freshly-allocated row of Values for row index r.
// String values are copies, independent of column storage.
func (t *Table) GetRow(r int) ([]value.Value, error) {
	if r < 0 || r >= t.rowCnt {
		return nil, fmt.Errorf("table %q: row %d: %w", t.Name, r, colerr.ErrRowIndexOOB)
	}
	out := make([]value.Value, len(t.columns))
	for c := range t.columns {
		v, err := t.columns[c].Get(r)
		if err != nil {
			return nil, err
		}
		out[c] = v
	}
	return out, nil
}

// Column returns the underlying Column for schema index i, or an error if i
// is out of range.
func (t *Table) Column(i int) (column.Column, error) {
	if i < 0 || i >= len(t.columns) {
		return nil, fmt.Errorf("table %q: column %d: %w", t.Name, i, colerr.ErrColumnIndexOOB)
	}
	return t.columns[i], nil
}

// Scan materializes every row in insertion order.
func (t *Table) Scan() ([][]value.Value, error) {
	rows := make([][]value.Value, t.rowCnt)
	for r := 0; r < t.rowCnt; r++ {
		row, err := t.GetRow(r)
		if err != nil {
			return nil, err
		}
		rows[r] = row
	}
	return rows, nil
}

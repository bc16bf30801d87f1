// Package column holds the per-type homogeneous containers that back a
// table's storage, one per schema column.
package column

import (
	"fmt"

	"github.com/coleman-db/coleman/internal/colerr"
	"github.com/coleman-db/coleman/internal/value"
)

// Column is a homogeneous, append-only sequence of one column's values.
type Column interface {
	Type() value.ColumnType
	Len() int
	Append(v value.Value)
	Get(i int) (value.Value, error)
}

// New returns a fresh, empty Column for the given type.
func New(t value.ColumnType) Column {
	switch t {
	case value.Int64:
		return &Int64Column{}
	case value.Float64:
		return &Float64Column{}
	case value.String:
		return &StringColumn{}
	case value.Bool:
		return &BoolColumn{}
	default:
		panic(fmt.Sprintf("column: unknown type %v", t))
	}
}

type Int64Column struct{ data []int64 }

func (c *Int64Column) Type() value.ColumnType { return value.Int64 }
func (c *Int64Column) Len() int               { return len(c.data) }
func (c *Int64Column) Append(v value.Value)   { c.data = append(c.data, v.I64) }
func (c *Int64Column) Get(i int) (value.Value, error) {
	if i < 0 || i >= len(c.data) {
		return value.Value{}, fmt.Errorf("column: row %d: %w", i, colerr.ErrRowIndexOOB)
	}
	return value.Int64Value(c.data[i]), nil
}

type Float64Column struct{ data []float64 }

func (c *Float64Column) Type() value.ColumnType { return value.Float64 }
func (c *Float64Column) Len() int               { return len(c.data) }
func (c *Float64Column) Append(v value.Value)   { c.data = append(c.data, v.F64) }
func (c *Float64Column) Get(i int) (value.Value, error) {
	if i < 0 || i >= len(c.data) {
		return value.Value{}, fmt.Errorf("column: row %d: %w", i, colerr.ErrRowIndexOOB)
	}
	return value.Float64Value(c.data[i]), nil
}

// StringColumn owns the bytes of every string it holds.
type StringColumn struct{ data []string }

func (c *StringColumn) Type() value.ColumnType { return value.String }
func (c *StringColumn) Len() int               { return len(c.data) }
func (c *StringColumn) Append(v value.Value) {
	// Copy so the column never aliases caller-owned string backing arrays.
	c.data = append(c.data, string([]byte(v.Str)))
}
func (c *StringColumn) Get(i int) (value.Value, error) {
	if i < 0 || i >= len(c.data) {
		return value.Value{}, fmt.Errorf("column: row %d: %w", i, colerr.ErrRowIndexOOB)
	}
	return value.StringValue(c.data[i]), nil
}

type BoolColumn struct{ data []bool }

func (c *BoolColumn) Type() value.ColumnType { return value.Bool }
func (c *BoolColumn) Len() int               { return len(c.data) }
func (c *BoolColumn) Append(v value.Value)   { c.data = append(c.data, v.B) }
func (c *BoolColumn) Get(i int) (value.Value, error) {
	if i < 0 || i >= len(c.data) {
		return value.Value{}, fmt.Errorf("column: row %d: %w", i, colerr.ErrRowIndexOOB)
	}
	return value.BoolValue(c.data[i]), nil
}

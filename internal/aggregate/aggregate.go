// Package aggregate reduces the rows selected by a predicate list to a
// single scalar Value: COUNT or SUM.
package aggregate

import (
	"fmt"

	"github.com/coleman-db/coleman/internal/colerr"
	"github.com/coleman-db/coleman/internal/predicate"
	"github.com/coleman-db/coleman/internal/table"
	"github.com/coleman-db/coleman/internal/value"
)

// Function enumerates the supported aggregate functions.
type Function int

const (
	Count Function = iota
	Sum
)

// Aggregate dispatches to the predicate evaluator to select rows, then
// reduces the named column over the selection with fn.
func Aggregate(t *table.Table, columnName string, fn Function, preds []predicate.Predicate) (value.Value, error) {
	colIdx, ok := t.Schema.Find(columnName)
	if !ok {
		return value.Value{}, fmt.Errorf("aggregate: column %q: %w", columnName, colerr.ErrColumnNotFound)
	}

	rows, err := predicate.Evaluate(t, preds)
	if err != nil {
		return value.Value{}, err
	}

	switch fn {
	case Count:
		return value.Int64Value(int64(len(rows))), nil
	case Sum:
		return sum(t, colIdx, rows)
	default:
		return value.Value{}, fmt.Errorf("aggregate: unknown function %d", fn)
	}
}

func sum(t *table.Table, colIdx int, rows []int) (value.Value, error) {
	colType, err := t.Schema.ColumnType(colIdx)
	if err != nil {
		return value.Value{}, err
	}

	switch colType {
	case value.Int64:
		var total int64
		for _, r := range rows {
			v, err := t.GetValue(r, colIdx)
			if err != nil {
				return value.Value{}, err
			}
			total += v.I64 // wraps on overflow, matching two's-complement addition
		}
		return value.Int64Value(total), nil
	case value.Float64:
		var total float64
		for _, r := range rows {
			v, err := t.GetValue(r, colIdx)
			if err != nil {
				return value.Value{}, err
			}
			total += v.F64
		}
		return value.Float64Value(total), nil
	default:
		return value.Value{}, fmt.Errorf("aggregate: SUM on %v column: %w", colType, colerr.ErrInvalidColumnType)
	}
}

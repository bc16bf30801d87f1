// Package predicate evaluates conjunctions of (column, operator, value)
// triples against a table, producing the sorted list of matching row indices.
package predicate

import (
	"bytes"
	"fmt"

	"github.com/coleman-db/coleman/internal/colerr"
	"github.com/coleman-db/coleman/internal/table"
	"github.com/coleman-db/coleman/internal/value"
)

// Operator enumerates the six comparison operators predicates support.
type Operator int

const (
	Eq Operator = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Predicate is a single (column, operator, value) triple. HasValue must be
// true for a predicate to be evaluable; a Predicate on an existing column
// whose value payload was never populated (HasValue false) fails with
// ErrInvalidPredicate rather than silently comparing against a zero Value.
// The column is resolved first, so an unknown column name fails with
// ErrColumnNotFound.
type Predicate struct {
	Column   string
	Operator Operator
	Value    value.Value
	HasValue bool
}

// New builds a Predicate with its value payload set.
func New(column string, op Operator, v value.Value) Predicate {
	return Predicate{Column: column, Operator: op, Value: v, HasValue: true}
}

// Evaluate returns, in ascending order, the row indices of table t for
// which every predicate in preds evaluates true. An empty preds list
// matches every row (0..RowCount-1).
func Evaluate(t *table.Table, preds []Predicate) ([]int, error) {
	if len(preds) == 0 {
		out := make([]int, t.RowCount())
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	type resolved struct {
		colIdx int
		op     Operator
		val    value.Value
	}

	rs := make([]resolved, len(preds))
	for i, p := range preds {
		idx, ok := t.Schema.Find(p.Column)
		if !ok {
			return nil, fmt.Errorf("predicate: column %q: %w", p.Column, colerr.ErrColumnNotFound)
		}
		if !p.HasValue {
			return nil, fmt.Errorf("predicate: column %q: %w", p.Column, colerr.ErrInvalidPredicate)
		}
		rs[i] = resolved{colIdx: idx, op: p.Operator, val: p.Value}
	}

	var out []int
	for r := 0; r < t.RowCount(); r++ {
		matched := true
		for _, p := range rs {
			v, err := t.GetValue(r, p.colIdx)
			if err != nil {
				return nil, err
			}
			if !compare(v, p.op, p.val) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, r)
		}
	}
	if out == nil {
		out = []int{}
	}
	return out, nil
}

// compare applies op to (v, target). A type mismatch between v and target
// makes the row simply fail to match; no error is raised here (the caller-
// visible ColumnNotFound/InvalidPredicate errors are raised earlier).
func compare(v value.Value, op Operator, target value.Value) bool {
	if v.Type != target.Type {
		return false
	}
	switch v.Type {
	case value.Int64:
		return compareOrdered(v.I64, target.I64, op)
	case value.Float64:
		return compareOrdered(v.F64, target.F64, op)
	case value.String:
		return compareString(v.Str, target.Str, op)
	case value.Bool:
		return compareBool(v.B, target.B, op)
	default:
		return false
	}
}

type ordered interface {
	int64 | float64
}

func compareOrdered[T ordered](a, b T, op Operator) bool {
	switch op {
	case Eq:
		return a == b
	case Ne:
		return a != b
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	default:
		return false
	}
}

func compareString(a, b string, op Operator) bool {
	switch op {
	case Eq:
		return a == b
	case Ne:
		return a != b
	case Lt:
		return bytes.Compare([]byte(a), []byte(b)) < 0
	case Le:
		return bytes.Compare([]byte(a), []byte(b)) <= 0
	case Gt:
		return bytes.Compare([]byte(a), []byte(b)) > 0
	case Ge:
		return bytes.Compare([]byte(a), []byte(b)) >= 0
	default:
		return false
	}
}

// boolRank orders false < true.
func boolRank(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func compareBool(a, b bool, op Operator) bool {
	switch op {
	case Eq:
		return a == b
	case Ne:
		return a != b
	default:
		return compareOrdered(boolRank(a), boolRank(b), op)
	}
}

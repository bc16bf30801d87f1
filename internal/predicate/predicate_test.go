package predicate

import (
	"errors"
	"math"
	"testing"

	"github.com/coleman-db/coleman/internal/colerr"
	"github.com/coleman-db/coleman/internal/schema"
	"github.com/coleman-db/coleman/internal/table"
	"github.com/coleman-db/coleman/internal/value"
)

func usersTable(t *testing.T) *table.Table {
	s := schema.New([]schema.ColumnDef{
		{Name: "id", Type: value.Int64},
		{Name: "name", Type: value.String},
		{Name: "age", Type: value.Int64},
		{Name: "score", Type: value.Float64},
	})
	tbl := table.New("users", s)
	rows := [][]value.Value{
		{value.Int64Value(1), value.StringValue("Alice"), value.Int64Value(30), value.Float64Value(95.5)},
		{value.Int64Value(2), value.StringValue("Bob"), value.Int64Value(25), value.Float64Value(87.3)},
		{value.Int64Value(3), value.StringValue("Charlie"), value.Int64Value(35), value.Float64Value(92.1)},
	}
	for _, r := range rows {
		if err := tbl.AppendRecord(r); err != nil {
			t.Fatalf("AppendRecord: %v", err)
		}
	}
	return tbl
}

func TestEvaluate_EmptyPredicatesIsScan(t *testing.T) {
	tbl := usersTable(t)
	idx, err := Evaluate(tbl, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(idx) != tbl.RowCount() {
		t.Fatalf("len(idx) = %d, want %d", len(idx), tbl.RowCount())
	}
	for i, r := range idx {
		if r != i {
			t.Fatalf("idx[%d] = %d, want %d", i, r, i)
		}
	}
}

func TestEvaluate_Conjunction(t *testing.T) {
	tbl := usersTable(t)
	idx, err := Evaluate(tbl, []Predicate{New("age", Gt, value.Int64Value(25))})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if want := []int{0, 2}; !equalInts(idx, want) {
		t.Fatalf("idx = %v, want %v", idx, want)
	}
}

func TestEvaluate_StringEquality(t *testing.T) {
	s := schema.New([]schema.ColumnDef{{Name: "name", Type: value.String}})
	tbl := table.New("people", s)
	for _, n := range []string{"Alice", "Bob", "Alice"} {
		if err := tbl.AppendRecord([]value.Value{value.StringValue(n)}); err != nil {
			t.Fatalf("AppendRecord: %v", err)
		}
	}

	idx, err := Evaluate(tbl, []Predicate{New("name", Eq, value.StringValue("Alice"))})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if want := []int{0, 2}; !equalInts(idx, want) {
		t.Fatalf("idx = %v, want %v", idx, want)
	}
}

func TestEvaluate_UnknownColumn(t *testing.T) {
	tbl := usersTable(t)
	if _, err := Evaluate(tbl, []Predicate{New("nope", Eq, value.Int64Value(1))}); !errors.Is(err, colerr.ErrColumnNotFound) {
		t.Fatalf("err = %v, want ErrColumnNotFound", err)
	}
}

func TestEvaluate_InvalidPredicateMissingValue(t *testing.T) {
	tbl := usersTable(t)
	bad := Predicate{Column: "age", Operator: Gt, HasValue: false}
	if _, err := Evaluate(tbl, []Predicate{bad}); !errors.Is(err, colerr.ErrInvalidPredicate) {
		t.Fatalf("err = %v, want ErrInvalidPredicate", err)
	}
}

func TestEvaluate_TypeMismatchFailsRowSilently(t *testing.T) {
	tbl := usersTable(t)
	// "age" is Int64; comparing against a String value should simply fail
	// to match, not raise an error.
	idx, err := Evaluate(tbl, []Predicate{New("age", Eq, value.StringValue("30"))})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(idx) != 0 {
		t.Fatalf("idx = %v, want empty", idx)
	}
}

func TestEvaluate_BoolOrdering(t *testing.T) {
	s := schema.New([]schema.ColumnDef{{Name: "active", Type: value.Bool}})
	tbl := table.New("flags", s)
	for _, b := range []bool{false, true, true} {
		if err := tbl.AppendRecord([]value.Value{value.BoolValue(b)}); err != nil {
			t.Fatalf("AppendRecord: %v", err)
		}
	}

	idx, err := Evaluate(tbl, []Predicate{New("active", Lt, value.BoolValue(true))})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if want := []int{0}; !equalInts(idx, want) {
		t.Fatalf("idx = %v, want %v", idx, want)
	}
}

func TestEvaluate_NaNComparisons(t *testing.T) {
	s := schema.New([]schema.ColumnDef{{Name: "score", Type: value.Float64}})
	tbl := table.New("scores", s)
	if err := tbl.AppendRecord([]value.Value{value.Float64Value(math.NaN())}); err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}

	for _, op := range []Operator{Eq, Lt, Le, Gt, Ge} {
		idx, err := Evaluate(tbl, []Predicate{New("score", op, value.Float64Value(1))})
		if err != nil {
			t.Fatalf("Evaluate(op=%v): %v", op, err)
		}
		if len(idx) != 0 {
			t.Fatalf("op %v matched NaN row, want no match", op)
		}
	}

	idx, err := Evaluate(tbl, []Predicate{New("score", Ne, value.Float64Value(1))})
	if err != nil {
		t.Fatalf("Evaluate(Ne): %v", err)
	}
	if len(idx) != 1 {
		t.Fatalf("Ne with NaN = %v, want match (IEEE-754: NaN != x)", idx)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package value

import "testing"

func TestValue_Equal(t *testing.T) {
	cases := []struct {
		a, b Value
		want bool
	}{
		{Int64Value(1), Int64Value(1), true},
		{Int64Value(1), Int64Value(2), false},
		{Float64Value(1.5), Float64Value(1.5), true},
		{StringValue("a"), StringValue("a"), true},
		{StringValue("a"), StringValue("b"), false},
		{BoolValue(true), BoolValue(true), true},
		{Int64Value(1), Float64Value(1), false}, // type mismatch, not coerced
	}
	for _, tc := range cases {
		if got := tc.a.Equal(tc.b); got != tc.want {
			t.Fatalf("%+v.Equal(%+v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestColumnType_ByteAssignments(t *testing.T) {
	// Binding across the WAL and snapshot on-disk formats.
	if Int64 != 0 || Float64 != 1 || String != 2 || Bool != 3 {
		t.Fatalf("ColumnType byte assignments changed: int64=%d float64=%d string=%d bool=%d",
			Int64, Float64, String, Bool)
	}
}

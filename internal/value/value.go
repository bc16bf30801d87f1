// Package value defines the tagged scalar type shared by columns, predicates,
// WAL records, and snapshot records.
package value

import "fmt"

// ColumnType is the logical type of a column or a Value. The byte assignments
// below are binding across the WAL and snapshot on-disk formats.
type ColumnType uint8

const (
	Int64 ColumnType = iota
	Float64
	String
	Bool
)

// String renders a ColumnType using the on-disk/RPC token names.
func (t ColumnType) String() string {
	switch t {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("ColumnType(%d)", uint8(t))
	}
}

// ParseColumnType maps a token back to a ColumnType. ok is false for unknown tokens.
func ParseColumnType(s string) (ColumnType, bool) {
	switch s {
	case "int64":
		return Int64, true
	case "float64":
		return Float64, true
	case "string":
		return String, true
	case "bool":
		return Bool, true
	default:
		return 0, false
	}
}

// Value is a tagged scalar. Only the field matching Type is meaningful; the
// others stay at their zero values.
type Value struct {
	Type ColumnType

	I64 int64
	F64 float64
	Str string
	B   bool
}

func Int64Value(v int64) Value     { return Value{Type: Int64, I64: v} }
func Float64Value(v float64) Value { return Value{Type: Float64, F64: v} }
func StringValue(v string) Value   { return Value{Type: String, Str: v} }
func BoolValue(v bool) Value       { return Value{Type: Bool, B: v} }

// Equal reports structural equality, including type, between two Values.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case Int64:
		return v.I64 == o.I64
	case Float64:
		return v.F64 == o.F64
	case String:
		return v.Str == o.Str
	case Bool:
		return v.B == o.B
	default:
		return false
	}
}

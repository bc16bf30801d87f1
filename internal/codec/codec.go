// Package codec implements the shared binary encoding for Values and
// Schemas used by both the WAL and the snapshot store. The value payload
// tags and ColumnType byte assignments here are binding on-disk formats:
// 1=Int64, 2=Float64, 3=String, 4=Bool for values; 0=Int64, 1=Float64,
// 2=String, 3=Bool for ColumnType.
package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/coleman-db/coleman/internal/colerr"
	"github.com/coleman-db/coleman/internal/schema"
	"github.com/coleman-db/coleman/internal/value"
)

const (
	valueTagInt64   uint8 = 1
	valueTagFloat64 uint8 = 2
	valueTagString  uint8 = 3
	valueTagBool    uint8 = 4
)

func valueTag(t value.ColumnType) (uint8, error) {
	switch t {
	case value.Int64:
		return valueTagInt64, nil
	case value.Float64:
		return valueTagFloat64, nil
	case value.String:
		return valueTagString, nil
	case value.Bool:
		return valueTagBool, nil
	default:
		return 0, fmt.Errorf("codec: %w", colerr.ErrInvalidValueType)
	}
}

// WriteValue appends the on-disk encoding of v to w.
func WriteValue(w io.Writer, v value.Value) error {
	tag, err := valueTag(v.Type)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte{tag}); err != nil {
		return err
	}
	switch v.Type {
	case value.Int64:
		return binary.Write(w, binary.LittleEndian, v.I64)
	case value.Float64:
		return binary.Write(w, binary.LittleEndian, math.Float64bits(v.F64))
	case value.String:
		b := []byte(v.Str)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
			return err
		}
		_, err := w.Write(b)
		return err
	case value.Bool:
		var b byte
		if v.B {
			b = 1
		}
		_, err := w.Write([]byte{b})
		return err
	default:
		return fmt.Errorf("codec: %w", colerr.ErrInvalidValueType)
	}
}

// ReadValue decodes one Value from r.
func ReadValue(r io.Reader) (value.Value, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return value.Value{}, err
	}
	switch tag[0] {
	case valueTagInt64:
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return value.Value{}, err
		}
		return value.Int64Value(v), nil
	case valueTagFloat64:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return value.Value{}, err
		}
		return value.Float64Value(math.Float64frombits(bits)), nil
	case valueTagString:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return value.Value{}, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return value.Value{}, err
		}
		return value.StringValue(string(buf)), nil
	case valueTagBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return value.Value{}, err
		}
		return value.BoolValue(b[0] != 0), nil
	default:
		return value.Value{}, fmt.Errorf("codec: tag %d: %w", tag[0], colerr.ErrInvalidValueType)
	}
}

func columnTypeByte(t value.ColumnType) (uint8, error) {
	switch t {
	case value.Int64, value.Float64, value.String, value.Bool:
		return uint8(t), nil
	default:
		return 0, fmt.Errorf("codec: %w", colerr.ErrInvalidValueType)
	}
}

// WriteSchema writes a column_count + { name_len | name | type } sequence.
func WriteSchema(w io.Writer, s schema.Schema) error {
	cols := s.Columns()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(cols))); err != nil {
		return err
	}
	for _, c := range cols {
		nameBytes := []byte(c.Name)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(nameBytes))); err != nil {
			return err
		}
		if _, err := w.Write(nameBytes); err != nil {
			return err
		}
		tb, err := columnTypeByte(c.Type)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte{tb}); err != nil {
			return err
		}
	}
	return nil
}

// ReadSchema decodes a schema written by WriteSchema.
func ReadSchema(r io.Reader) (schema.Schema, error) {
	var colCount uint32
	if err := binary.Read(r, binary.LittleEndian, &colCount); err != nil {
		return schema.Schema{}, err
	}
	defs := make([]schema.ColumnDef, colCount)
	for i := range defs {
		var nameLen uint32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return schema.Schema{}, err
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return schema.Schema{}, err
		}
		var tb [1]byte
		if _, err := io.ReadFull(r, tb[:]); err != nil {
			return schema.Schema{}, err
		}
		switch value.ColumnType(tb[0]) {
		case value.Int64, value.Float64, value.String, value.Bool:
		default:
			return schema.Schema{}, fmt.Errorf("codec: column type byte %d: %w", tb[0], colerr.ErrInvalidValueType)
		}
		defs[i] = schema.ColumnDef{Name: string(nameBytes), Type: value.ColumnType(tb[0])}
	}
	return schema.New(defs), nil
}

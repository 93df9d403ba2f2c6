// Package edgestore stores directed graph edges as fixed-length binary
// records in one contiguous buffer. The record layout is fully
// configurable: an ordered list of named integer fields packed
// little-endian at fixed offsets with no padding. The container is built
// for O(E) scans with no per-edge allocation and is used to scale-test
// the graph algorithms against millions of edges.
package edgestore

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DType identifies the binary width and signedness of a field.
type DType string

const (
	U8  DType = "u8"
	I8  DType = "i8"
	U16 DType = "u16"
	I16 DType = "i16"
	U32 DType = "u32"
	I32 DType = "i32"
	U64 DType = "u64"
	I64 DType = "i64"
)

// Size returns the field width in bytes, or 0 for an unknown dtype.
func (d DType) Size() int {
	switch d {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32:
		return 4
	case U64, I64:
		return 8
	default:
		return 0
	}
}

// Bounds returns the inclusive value range for the dtype. Values are
// carried as int64 end to end, so u64 is capped at MaxInt64.
func (d DType) Bounds() (min, max int64) {
	switch d {
	case U8:
		return 0, math.MaxUint8
	case I8:
		return math.MinInt8, math.MaxInt8
	case U16:
		return 0, math.MaxUint16
	case I16:
		return math.MinInt16, math.MaxInt16
	case U32:
		return 0, math.MaxUint32
	case I32:
		return math.MinInt32, math.MaxInt32
	case U64:
		return 0, math.MaxInt64
	case I64:
		return math.MinInt64, math.MaxInt64
	default:
		return 0, 0
	}
}

// Field describes a single named field within an edge record.
type Field struct {
	Name  string
	DType DType
}

// Schema defines the binary layout of an edge record: field order, fixed
// offsets and total record size. A Schema is immutable once built.
type Schema struct {
	fields  []Field
	offsets map[string]int
	size    int
}

// NewSchema builds a schema from an ordered field list. Field offsets
// follow declaration order with no padding.
func NewSchema(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema needs at least one field")
	}

	s := &Schema{
		fields:  make([]Field, len(fields)),
		offsets: make(map[string]int, len(fields)),
	}
	copy(s.fields, fields)

	for _, f := range fields {
		if f.DType.Size() == 0 {
			return nil, fmt.Errorf("field %q: unsupported dtype %q", f.Name, f.DType)
		}
		if _, dup := s.offsets[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		s.offsets[f.Name] = s.size
		s.size += f.DType.Size()
	}

	return s, nil
}

// RecordSize returns the fixed byte length of one edge record.
func (s *Schema) RecordSize() int {
	return s.size
}

// Fields returns the schema fields in declaration order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// Offset returns the byte offset of the named field within a record.
func (s *Schema) Offset(name string) (int, bool) {
	off, ok := s.offsets[name]
	return off, ok
}

// HasField reports whether the schema declares the named field.
func (s *Schema) HasField(name string) bool {
	_, ok := s.offsets[name]
	return ok
}

// DTypeOf returns the dtype of the named field.
func (s *Schema) DTypeOf(name string) (DType, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f.DType, true
		}
	}
	return "", false
}

// putValue writes v at buf[off:] using the field's width, little-endian.
// Signed values are stored as their two's-complement bit pattern.
func putValue(buf []byte, off int, d DType, v int64) {
	switch d {
	case U8, I8:
		buf[off] = byte(v)
	case U16, I16:
		binary.LittleEndian.PutUint16(buf[off:], uint16(v))
	case U32, I32:
		binary.LittleEndian.PutUint32(buf[off:], uint32(v))
	case U64, I64:
		binary.LittleEndian.PutUint64(buf[off:], uint64(v))
	}
}

// getValue reads the field at buf[off:], sign-extending signed dtypes.
func getValue(buf []byte, off int, d DType) int64 {
	switch d {
	case U8:
		return int64(buf[off])
	case I8:
		return int64(int8(buf[off]))
	case U16:
		return int64(binary.LittleEndian.Uint16(buf[off:]))
	case I16:
		return int64(int16(binary.LittleEndian.Uint16(buf[off:])))
	case U32:
		return int64(binary.LittleEndian.Uint32(buf[off:]))
	case I32:
		return int64(int32(binary.LittleEndian.Uint32(buf[off:])))
	case U64, I64:
		return int64(binary.LittleEndian.Uint64(buf[off:]))
	default:
		return 0
	}
}

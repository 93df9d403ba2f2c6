package edgestore

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"taskgrid/internal/graphalg"
)

// WeightField is the well-known field name used as the edge weight when
// materializing adjacency. Schemas without it produce weight 0.
const WeightField = "duration"

var (
	// ErrMissingField indicates AddEdge was called without a value for
	// every schema field.
	ErrMissingField = errors.New("missing edge field")
	// ErrUnknownField indicates a value for a field the schema does not
	// declare.
	ErrUnknownField = errors.New("unknown edge field")
	// ErrOutOfRange indicates a field value outside its dtype bounds.
	ErrOutOfRange = errors.New("field value out of range")
	// ErrIndexRange indicates an edge index past the end of the store.
	ErrIndexRange = errors.New("edge index out of range")
)

// Store holds edges as a contiguous array of fixed-length binary records.
// The buffer length is always numEdges * schema.RecordSize(), and the
// layout is little-endian regardless of host byte order.
type Store struct {
	schema      *Schema
	sourceField string
	targetField string
	buf         []byte
	numEdges    int
}

// New creates an empty store. sourceField and targetField nominate the
// schema fields holding the edge endpoints.
func New(schema *Schema, sourceField, targetField string) (*Store, error) {
	if !schema.HasField(sourceField) {
		return nil, fmt.Errorf("source field %q not in schema", sourceField)
	}
	if !schema.HasField(targetField) {
		return nil, fmt.Errorf("target field %q not in schema", targetField)
	}
	return &Store{
		schema:      schema,
		sourceField: sourceField,
		targetField: targetField,
	}, nil
}

// Schema returns the store's record schema.
func (s *Store) Schema() *Schema {
	return s.schema
}

// NumEdges returns the number of stored edges.
func (s *Store) NumEdges() int {
	return s.numEdges
}

// BufferSize returns the byte length of the backing buffer.
func (s *Store) BufferSize() int {
	return len(s.buf)
}

// AddEdge appends one edge record. Every schema field must be present and
// within its dtype bounds. Returns the 0-based edge index.
func (s *Store) AddEdge(fields map[string]int64) (int, error) {
	for _, f := range s.schema.Fields() {
		if _, ok := fields[f.Name]; !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingField, f.Name)
		}
	}
	for name, v := range fields {
		d, ok := s.schema.DTypeOf(name)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		min, max := d.Bounds()
		if v < min || v > max {
			return 0, fmt.Errorf("%w: %s=%d outside %s [%d, %d]", ErrOutOfRange, name, v, d, min, max)
		}
	}

	start := len(s.buf)
	s.buf = append(s.buf, make([]byte, s.schema.RecordSize())...)
	for _, f := range s.schema.Fields() {
		off, _ := s.schema.Offset(f.Name)
		putValue(s.buf, start+off, f.DType, fields[f.Name])
	}
	s.numEdges++
	return s.numEdges - 1, nil
}

// Edge returns the record at index i as a field-name to value map.
func (s *Store) Edge(i int) (map[string]int64, error) {
	if i < 0 || i >= s.numEdges {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexRange, i, s.numEdges)
	}
	start := i * s.schema.RecordSize()
	out := make(map[string]int64, len(s.schema.Fields()))
	for _, f := range s.schema.Fields() {
		off, _ := s.schema.Offset(f.Name)
		out[f.Name] = getValue(s.buf, start+off, f.DType)
	}
	return out, nil
}

// EndpointAt returns the source and target of the edge at index i without
// decoding the full record. The index must be valid.
func (s *Store) EndpointAt(i int) (src, dst int64) {
	start := i * s.schema.RecordSize()
	srcOff, _ := s.schema.Offset(s.sourceField)
	dstOff, _ := s.schema.Offset(s.targetField)
	srcType, _ := s.schema.DTypeOf(s.sourceField)
	dstType, _ := s.schema.DTypeOf(s.targetField)
	return getValue(s.buf, start+srcOff, srcType), getValue(s.buf, start+dstOff, dstType)
}

// Vertices returns the distinct source and target values seen across all
// edges, in ascending order. One scan, no per-edge allocation.
func (s *Store) Vertices() []int64 {
	seen := make(map[int64]struct{}, s.numEdges)
	for i := 0; i < s.numEdges; i++ {
		src, dst := s.EndpointAt(i)
		seen[src] = struct{}{}
		seen[dst] = struct{}{}
	}
	out := make([]int64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Adjacency materializes out/in adjacency lists in edge insertion order.
// The weight comes from the well-known "duration" field when the schema
// declares it, 0 otherwise.
func (s *Store) Adjacency() *graphalg.Adjacency {
	adj := graphalg.NewAdjacency()

	recSize := s.schema.RecordSize()
	durOff, hasDur := s.schema.Offset(WeightField)
	var durType DType
	if hasDur {
		durType, _ = s.schema.DTypeOf(WeightField)
	}

	for i := 0; i < s.numEdges; i++ {
		src, dst := s.EndpointAt(i)
		var w int64
		if hasDur {
			w = getValue(s.buf, i*recSize+durOff, durType)
		}
		adj.AddArc(src, dst, i, w)
	}
	return adj
}

// WriteTo dumps the raw record buffer: numEdges * recordSize bytes, no
// header. The schema travels out-of-band.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.buf)
	return int64(n), err
}

// ReadFrom replaces the store contents with records read until EOF. The
// byte count must be a whole number of records.
func (s *Store) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), fmt.Errorf("read edge dump: %w", err)
	}
	if len(data)%s.schema.RecordSize() != 0 {
		return int64(len(data)), fmt.Errorf("edge dump length %d not a multiple of record size %d",
			len(data), s.schema.RecordSize())
	}
	s.buf = data
	s.numEdges = len(data) / s.schema.RecordSize()
	return int64(len(data)), nil
}

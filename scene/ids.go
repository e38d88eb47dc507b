package scene

import "github.com/rm-tablet/lines/wire"

// CrdtId is the (author_byte, counter) identity used throughout a scene
// file. It is the same type ByteStream.ReadCrdtId/WriteCrdtId operate
// on; scene re-exports it under its own name because callers working at
// this layer should not need to import package wire directly.
type CrdtId = wire.CrdtId

// EndMarker is the sentinel CrdtId{0,0}: "beginning of sequence" when
// used as a left reference, "end of sequence" when used as a right
// reference (spec Glossary).
var EndMarker = CrdtId{}

// LwwValue is a last-writer-wins register: a value paired with the
// timestamp of the write that produced it. The entry with the larger
// timestamp dominates when two registers are reconciled (reconciliation
// itself happens in tablet firmware; this core only stores and
// round-trips the pair).
type LwwValue[T any] struct {
	Timestamp CrdtId
	Value     T
}

// NewLwwValue builds a register with the given timestamp and value.
func NewLwwValue[T any](ts CrdtId, v T) LwwValue[T] {
	return LwwValue[T]{Timestamp: ts, Value: v}
}

// DefaultLwwValue builds a register at the zero timestamp (0,0), used
// when constructing a scene entity's default registers (e.g. a new
// Group's label/visible) before any write has touched them.
func DefaultLwwValue[T any](v T) LwwValue[T] {
	return LwwValue[T]{Timestamp: EndMarker, Value: v}
}

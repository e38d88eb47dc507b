// Package block implements the per-block-type grammar of §4.6: how
// each envelope's payload maps to and from the wire package's tag/
// sub-block primitives and the scene package's domain types.
//
// Each block type gets a Read/Write pair operating on the *wire.Codec
// of its already-open envelope; Reader and Writer wrap them with the
// wire.BlockReader / wire.BlockWriter framing. Unknown or malformed blocks never
// reach these functions directly — see UnreadableBlock and Reader for
// the dispatch and recovery logic.
package block

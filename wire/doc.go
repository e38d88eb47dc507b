// Package wire implements the low-level binary envelope of a reMarkable
// v6 scene file: a little-endian cursor (ByteStream), the tag/sub-block
// codec that sits on top of it (TagCodec), and the top-level block
// envelope reader/writer (BlockFramer).
//
// Nothing in this package knows about strokes, groups, or CRDTs — it only
// understands bytes, tags, and framed regions. The domain model lives in
// package scene; the per-block-type grammar lives in package block.
package wire

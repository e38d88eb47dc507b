package wire

import (
	"errors"
	"io"

	"go.uber.org/zap"
)

// ErrEndOfStream is returned by BlockReader.Next when there are no more
// block envelopes to read. A clean EOF between blocks is not an error
// condition per §4.3.
var ErrEndOfStream = io.EOF

// ReservedByteError is returned when a block envelope's reserved byte is
// nonzero.
type ReservedByteError struct {
	Offset int
	Got    byte
}

func (e *ReservedByteError) Error() string {
	return "nonzero reserved byte in block envelope"
}

// FramedBlock describes a top-level block envelope once its header has
// been read. Payload bytes are not copied out; callers read them
// through the same Codec, bounded by the open block scope.
type FramedBlock struct {
	Offset         int
	Length         int
	BlockType      byte
	MinVersion     uint8
	CurrentVersion uint8

	// scopeDepth is the Codec's scope stack depth immediately after
	// this block's scope was pushed, used by SkipBlock to unwind any
	// sub-scopes a failed payload parse left open.
	scopeDepth int
}

// BlockReader iterates the top-level block envelopes of a scene file
// body (the bytes after the 43-byte file header).
type BlockReader struct {
	Codec *Codec

	// ReaderVersion bounds which blocks are read: a block is read only
	// if its MinVersion <= ReaderVersion. Defaults to 2 (the only
	// version this module understands point encodings for).
	ReaderVersion uint8

	// Log receives the single per-lifetime "extra bytes left in scope"
	// warning (§7). Nil (the default) disables logging. Codec itself
	// already gates this to one call per lifetime.
	Log *zap.Logger
}

// NewBlockReader creates a BlockReader over data (already past the file
// header).
func NewBlockReader(data []byte, opts ...ReaderOption) *BlockReader {
	r := &BlockReader{Codec: NewReaderCodec(data), ReaderVersion: 2}
	for _, opt := range opts {
		opt(r)
	}
	r.Codec.OnExtraData = func(extra []byte) {
		if r.Log != nil {
			r.Log.Warn("extra bytes left in block scope", zap.Int("bytes", len(extra)))
		}
	}
	return r
}

// Next reads the next block envelope and opens it as the active scope.
// The caller must read exactly the fields the block's grammar defines
// and then call EndBlock. Returns ErrEndOfStream when no more bytes
// remain.
func (r *BlockReader) Next() (*FramedBlock, error) {
	bs := r.Codec.BS
	if bs.pos >= len(bs.buf) {
		return nil, ErrEndOfStream
	}

	length, err := bs.ReadU32()
	if err != nil {
		return nil, err
	}
	reserved, err := bs.ReadU8()
	if err != nil {
		return nil, err
	}
	if reserved != 0 {
		return nil, &ReservedByteError{Offset: bs.pos - 1, Got: reserved}
	}
	minVersion, err := bs.ReadU8()
	if err != nil {
		return nil, err
	}
	currentVersion, err := bs.ReadU8()
	if err != nil {
		return nil, err
	}
	blockType, err := bs.ReadU8()
	if err != nil {
		return nil, err
	}

	fb := &FramedBlock{
		Offset:         bs.pos,
		Length:         int(length),
		BlockType:      blockType,
		MinVersion:     minVersion,
		CurrentVersion: currentVersion,
	}
	r.Codec.scopes = append(r.Codec.scopes, scope{offset: fb.Offset, length: fb.Length})
	fb.scopeDepth = len(r.Codec.scopes)
	return fb, nil
}

// EndBlock closes the block scope opened by Next, applying the same
// overflow-fatal / under-read-tolerant discipline as sub-blocks.
func (r *BlockReader) EndBlock() error {
	return r.Codec.EndSubBlock()
}

// SkipBlock discards the remainder of the currently open block without
// interpreting it, used when a block type is unknown or its grammar
// raised an error partway through (§4.6 "Unknown or malformed blocks").
// It returns the full payload bytes of the block from its declared
// start, and seeks the cursor to the end of the block.
func (r *BlockReader) SkipBlock(fb *FramedBlock) ([]byte, error) {
	if len(r.Codec.scopes) < fb.scopeDepth {
		return nil, errors.New("wire: SkipBlock with no open scope")
	}
	// Unwind to one scope below this block's own, discarding any
	// sub-block scopes a failed payload parse left open.
	r.Codec.scopes = r.Codec.scopes[:fb.scopeDepth-1]
	if err := r.Codec.BS.Seek(fb.Offset); err != nil {
		return nil, err
	}
	payload, err := r.Codec.BS.ReadBytes(fb.Length)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// BlockWriter emits top-level block envelopes in the teacher-style
// buffer-then-frame idiom: the payload is built in a scratch Codec, then
// the envelope (with the now-known length) is emitted to the underlying
// stream followed by the scratch bytes.
type BlockWriter struct {
	Codec *Codec

	// PointVersion records the writer-wide default point encoding
	// (v1 vs v2, §6); callers choosing per-block encodings (as
	// block.Writer.WriteSceneItem does) may ignore it.
	PointVersion uint8
}

// NewBlockWriter creates a BlockWriter over a fresh writer Codec,
// defaulting to v2 points.
func NewBlockWriter(opts ...WriterOption) *BlockWriter {
	w := &BlockWriter{Codec: NewWriterCodec(), PointVersion: 2}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Bytes returns everything written so far.
func (w *BlockWriter) Bytes() []byte {
	return w.Codec.BS.Bytes()
}

// WriteBlock buffers payload() into a scratch Codec and then emits the
// envelope and payload bytes to w. payload must not call WriteBlock
// itself — nested top-level blocks are not part of the grammar and
// doing so is a programmer error.
func (w *BlockWriter) WriteBlock(blockType byte, minVersion, currentVersion uint8, payload func(*Codec) error) error {
	scratch := NewWriterCodec()
	if err := payload(scratch); err != nil {
		return err
	}
	if len(scratch.scopes) != 0 {
		return &UnexpectedBlockError{Reason: "payload left an open sub-block"}
	}

	body := scratch.BS.Bytes()
	w.Codec.BS.WriteU32(uint32(len(body)))
	w.Codec.BS.WriteU8(0) // reserved
	w.Codec.BS.WriteU8(minVersion)
	w.Codec.BS.WriteU8(currentVersion)
	w.Codec.BS.WriteU8(blockType)
	w.Codec.BS.WriteBytes(body)
	return nil
}

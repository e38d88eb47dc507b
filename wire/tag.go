package wire

// WireType is the low nibble of a tag byte: the physical encoding of the
// value that follows.
type WireType uint8

const (
	WireByte     WireType = 0x1 // single byte: bool / u8
	WireFour     WireType = 0x4 // four bytes: u32 / f32
	WireEight    WireType = 0x8 // eight bytes: f64
	WireSubBlock WireType = 0xC // length-prefixed sub-block
	WireCrdtId   WireType = 0xF // CRDT ID (u8 author + varuint counter)
)

// Tag is a decoded (field index, wire type) pair.
type Tag struct {
	Index uint8
	Wire  WireType
}

// encode packs a tag into the varuint x = index<<4 | wire. Field indices
// below 8 give a single-byte varuint; higher indices (TreeNode's anchor
// registers use 8-10) take two bytes.
func encodeTag(index uint8, wire WireType) uint64 {
	return uint64(index)<<4 | uint64(wire&0x0F)
}

func decodeTag(x uint64) Tag {
	return Tag{Index: uint8(x >> 4), Wire: WireType(x & 0x0F)}
}

// scope is the bookkeeping record for an open block or sub-block: the
// offset of its first payload byte and its declared length. Scopes nest
// LIFO — a Codec tracks them as a stack so that reads are bounded by the
// innermost open scope.
type scope struct {
	offset    int
	length    int
	index     uint8 // field index this scope was opened under (sub-blocks only)
	extraData []byte
}

func (sc *scope) end() int {
	return sc.offset + sc.length
}

// Codec layers the tag/sub-block grammar (§4.2) on top of a ByteStream.
// The same type serves read and write, mirroring ByteStream's own
// read/write duality. A Codec also implements the block envelope
// bookkeeping in frame.go, since §4.3 explicitly reuses "the same
// position discipline as sub-blocks".
type Codec struct {
	BS *ByteStream

	scopes []scope

	// warnedExtra ensures at most one "extra bytes in scope" warning is
	// surfaced per Codec lifetime, per §7.
	warnedExtra bool

	// OnExtraData is invoked the first time a scope (block or
	// sub-block) is closed with unread bytes remaining. Callers (the
	// BlockReader in frame.go, or higher layers) may use it to log a
	// single warning. It is never called more than once per Codec.
	OnExtraData func(extra []byte)
}

// NewReaderCodec wraps data for reading.
func NewReaderCodec(data []byte) *Codec {
	return &Codec{BS: NewReader(data)}
}

// NewWriterCodec creates an empty Codec for writing.
func NewWriterCodec() *Codec {
	return &Codec{BS: NewWriter()}
}

// activeEnd returns the exclusive upper bound of the innermost open
// scope, or -1 if there is none (top of stream).
func (c *Codec) activeEnd() int {
	if len(c.scopes) == 0 {
		return -1
	}
	return c.scopes[len(c.scopes)-1].end()
}

// RemainingInScope returns the number of bytes left in the innermost
// open scope (block or sub-block). Returns -1 if no scope is open.
func (c *Codec) RemainingInScope() int {
	end := c.activeEnd()
	if end < 0 {
		return -1
	}
	return end - c.BS.pos
}

func (c *Codec) checkOverflow() error {
	end := c.activeEnd()
	if end >= 0 && c.BS.pos > end {
		return &BlockOverflowError{Offset: c.BS.pos, End: end}
	}
	return nil
}

// ReadTag consumes a tag and fails with *UnexpectedTagError if either
// the field index or the wire type does not match what was expected.
// On failure the cursor position is restored to where ReadTag was
// called, so a caller can retry with a different expectation (this is
// what the optional-field helpers rely on).
func (c *Codec) ReadTag(wantIndex uint8, wantWire WireType) error {
	start := c.BS.pos
	x, err := c.BS.ReadVaruint()
	if err != nil {
		c.BS.pos = start
		return err
	}
	got := decodeTag(x)
	if got.Index != wantIndex || got.Wire != wantWire {
		c.BS.pos = start
		return &UnexpectedTagError{
			Offset:    start,
			WantIndex: wantIndex,
			WantWire:  wantWire,
			GotIndex:  got.Index,
			GotWire:   got.Wire,
		}
	}
	return nil
}

// PeekTag reports whether the next tag matches (index, wire) without
// advancing the cursor under any circumstances.
func (c *Codec) PeekTag(index uint8, wire WireType) bool {
	start := c.BS.pos
	err := c.ReadTag(index, wire)
	c.BS.pos = start
	return err == nil
}

// WriteTag appends a tag for (index, wire).
func (c *Codec) WriteTag(index uint8, wire WireType) {
	c.BS.WriteVaruint(encodeTag(index, wire))
}

// ---- typed single-field helpers --------------------------------------
//
// Every read goes through the active scope's overflow check (§4.2,
// §4.3): reading past a declared block or sub-block boundary is fatal
// even if the underlying buffer has more bytes belonging to the next
// block.

func (c *Codec) ReadU8(index uint8) (uint8, error) {
	if err := c.ReadTag(index, WireByte); err != nil {
		return 0, err
	}
	v, err := c.BS.ReadU8()
	if err != nil {
		return 0, err
	}
	return v, c.checkOverflow()
}

func (c *Codec) WriteU8(index uint8, v uint8) {
	c.WriteTag(index, WireByte)
	c.BS.WriteU8(v)
}

func (c *Codec) ReadBool(index uint8) (bool, error) {
	if err := c.ReadTag(index, WireByte); err != nil {
		return false, err
	}
	v, err := c.BS.ReadBool()
	if err != nil {
		return false, err
	}
	return v, c.checkOverflow()
}

func (c *Codec) WriteBool(index uint8, v bool) {
	c.WriteTag(index, WireByte)
	c.BS.WriteBool(v)
}

func (c *Codec) ReadU32(index uint8) (uint32, error) {
	if err := c.ReadTag(index, WireFour); err != nil {
		return 0, err
	}
	v, err := c.BS.ReadU32()
	if err != nil {
		return 0, err
	}
	return v, c.checkOverflow()
}

func (c *Codec) WriteU32(index uint8, v uint32) {
	c.WriteTag(index, WireFour)
	c.BS.WriteU32(v)
}

func (c *Codec) ReadF32(index uint8) (float32, error) {
	if err := c.ReadTag(index, WireFour); err != nil {
		return 0, err
	}
	v, err := c.BS.ReadF32()
	if err != nil {
		return 0, err
	}
	return v, c.checkOverflow()
}

func (c *Codec) WriteF32(index uint8, v float32) {
	c.WriteTag(index, WireFour)
	c.BS.WriteF32(v)
}

func (c *Codec) ReadF64(index uint8) (float64, error) {
	if err := c.ReadTag(index, WireEight); err != nil {
		return 0, err
	}
	v, err := c.BS.ReadF64()
	if err != nil {
		return 0, err
	}
	return v, c.checkOverflow()
}

func (c *Codec) WriteF64(index uint8, v float64) {
	c.WriteTag(index, WireEight)
	c.BS.WriteF64(v)
}

func (c *Codec) ReadCrdtId(index uint8) (CrdtId, error) {
	if err := c.ReadTag(index, WireCrdtId); err != nil {
		return CrdtId{}, err
	}
	v, err := c.BS.ReadCrdtId()
	if err != nil {
		return CrdtId{}, err
	}
	return v, c.checkOverflow()
}

func (c *Codec) WriteCrdtId(index uint8, v CrdtId) {
	c.WriteTag(index, WireCrdtId)
	c.BS.WriteCrdtId(v)
}

// ---- optional variants -------------------------------------------------
// Each catches EndOfInputError/UnexpectedTagError and returns the
// caller-supplied default without advancing the cursor.

func (c *Codec) ReadU8Optional(index uint8, def uint8) uint8 {
	start := c.BS.pos
	v, err := c.ReadU8(index)
	if err != nil {
		c.BS.pos = start
		return def
	}
	return v
}

func (c *Codec) ReadBoolOptional(index uint8, def bool) bool {
	start := c.BS.pos
	v, err := c.ReadBool(index)
	if err != nil {
		c.BS.pos = start
		return def
	}
	return v
}

func (c *Codec) ReadU32Optional(index uint8, def uint32) uint32 {
	start := c.BS.pos
	v, err := c.ReadU32(index)
	if err != nil {
		c.BS.pos = start
		return def
	}
	return v
}

func (c *Codec) ReadF32Optional(index uint8, def float32) float32 {
	start := c.BS.pos
	v, err := c.ReadF32(index)
	if err != nil {
		c.BS.pos = start
		return def
	}
	return v
}

func (c *Codec) ReadCrdtIdOptional(index uint8, def CrdtId) CrdtId {
	start := c.BS.pos
	v, err := c.ReadCrdtId(index)
	if err != nil {
		c.BS.pos = start
		return def
	}
	return v
}

// ---- sub-block scope ---------------------------------------------------

// BeginSubBlock reads a (tag 0xC, u32 length) header and opens a new
// scope bounding subsequent reads/writes to the declared length.
func (c *Codec) BeginSubBlock(index uint8) error {
	if err := c.ReadTag(index, WireSubBlock); err != nil {
		return err
	}
	length, err := c.BS.ReadU32()
	if err != nil {
		return err
	}
	c.scopes = append(c.scopes, scope{offset: c.BS.pos, length: int(length), index: index})
	return nil
}

// EndSubBlock closes the innermost scope. Overflow (more was read than
// declared) is fatal; under-read captures the remaining bytes as
// extra_data on the scope and, the first time this happens for this
// Codec, invokes OnExtraData.
func (c *Codec) EndSubBlock() error {
	if len(c.scopes) == 0 {
		return &UnexpectedBlockError{Reason: "end_subblock with no open scope"}
	}
	sc := &c.scopes[len(c.scopes)-1]
	end := sc.end()
	if c.BS.pos > end {
		return &BlockOverflowError{Offset: c.BS.pos, End: end}
	}
	if c.BS.pos < end {
		extra, err := c.BS.ReadBytes(end - c.BS.pos)
		if err != nil {
			return err
		}
		sc.extraData = extra
		if !c.warnedExtra {
			c.warnedExtra = true
			if c.OnExtraData != nil {
				c.OnExtraData(extra)
			}
		}
	}
	c.scopes = c.scopes[:len(c.scopes)-1]
	return nil
}

// BeginSubBlockWrite opens a sub-block for writing: it writes the tag
// and a placeholder length, to be patched in by EndSubBlockWrite.
func (c *Codec) BeginSubBlockWrite(index uint8) {
	c.WriteTag(index, WireSubBlock)
	c.scopes = append(c.scopes, scope{offset: c.BS.pos, index: index})
	// placeholder length, patched on EndSubBlockWrite
	c.BS.WriteU32(0)
	c.scopes[len(c.scopes)-1].offset = c.BS.pos
}

// EndSubBlockWrite patches the placeholder length written by
// BeginSubBlockWrite with the number of bytes actually written since.
func (c *Codec) EndSubBlockWrite() error {
	if len(c.scopes) == 0 {
		return &UnexpectedBlockError{Reason: "end_subblock_write with no open scope"}
	}
	sc := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]
	length := c.BS.pos - sc.offset
	patchLengthU32(c.BS, sc.offset-4, uint32(length))
	return nil
}

// patchLengthU32 overwrites the 4 bytes at offset with v, little-endian,
// without moving the cursor.
func patchLengthU32(bs *ByteStream, offset int, v uint32) {
	bs.buf[offset] = byte(v)
	bs.buf[offset+1] = byte(v >> 8)
	bs.buf[offset+2] = byte(v >> 16)
	bs.buf[offset+3] = byte(v >> 24)
}

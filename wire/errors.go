package wire

import "fmt"

// EndOfInputError is returned by any read that would cross the end of
// the buffer. Crossing the end of the active block or sub-block is
// reported as BlockOverflowError instead.
type EndOfInputError struct {
	Offset int
	Want   int
	Have   int
}

func (e *EndOfInputError) Error() string {
	return fmt.Sprintf("end of input at offset %d: want %d bytes, have %d", e.Offset, e.Want, e.Have)
}

// UnexpectedTagError is returned by ReadTag when the index or wire type
// read from the stream does not match what the caller expected.
type UnexpectedTagError struct {
	Offset            int
	WantIndex         uint8
	WantWire          WireType
	GotIndex          uint8
	GotWire           WireType
}

func (e *UnexpectedTagError) Error() string {
	return fmt.Sprintf("unexpected tag at offset %d: want (index=%d wire=%#x), got (index=%d wire=%#x)",
		e.Offset, e.WantIndex, e.WantWire, e.GotIndex, e.GotWire)
}

// BlockOverflowError is returned when a read advances the cursor past
// the declared end of the active block or sub-block scope.
type BlockOverflowError struct {
	Offset int
	End    int
}

func (e *BlockOverflowError) Error() string {
	return fmt.Sprintf("block overflow: position %d exceeds declared end %d", e.Offset, e.End)
}

// BadHeaderError is returned when the 43-byte file header does not match
// the expected magic string exactly.
type BadHeaderError struct {
	Offset int
	Want   byte
	Got    byte
}

func (e *BadHeaderError) Error() string {
	return fmt.Sprintf("bad header at byte %d: want %q, got %q", e.Offset, e.Want, e.Got)
}

// InvalidVaruintError is returned on read when a varuint carries more
// continuation bytes than fit in 64 bits.
type InvalidVaruintError struct {
	Reason string
}

func (e *InvalidVaruintError) Error() string {
	return fmt.Sprintf("invalid varuint: %s", e.Reason)
}

// UnexpectedBlockError is a writer-side programmer error: a sub-block or
// block was started while another one of the same kind was still open,
// or ended without a matching begin.
type UnexpectedBlockError struct {
	Reason string
}

func (e *UnexpectedBlockError) Error() string {
	return fmt.Sprintf("unexpected block: %s", e.Reason)
}

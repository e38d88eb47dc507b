package block

import (
	"unicode/utf8"

	"github.com/rm-tablet/lines/scene"
	"github.com/rm-tablet/lines/wire"
)

// formatFieldIndex is the tag index of the optional u32 format code
// that may follow the string bytes inside a string-with-format
// sub-block (the sub-block itself is opened by the caller).
const formatFieldIndex = 2

// ReadString reads a "string" sub-block body already opened by the
// caller (varuint length, bool is_ascii, length bytes of UTF-8).
func ReadString(c *wire.Codec) (string, error) {
	n, err := c.BS.ReadVaruint()
	if err != nil {
		return "", err
	}
	isASCII, err := c.BS.ReadBool()
	if err != nil {
		return "", err
	}
	if !isASCII {
		return "", &scene.InvalidEncodingError{Reason: "is_ascii flag is false"}
	}
	raw, err := c.BS.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", &scene.InvalidEncodingError{Reason: "bytes are not valid UTF-8"}
	}
	return string(raw), nil
}

// WriteString writes a plain string sub-block body: length, is_ascii
// (always written as true, whatever bytes s holds), then the bytes.
func WriteString(c *wire.Codec, s string) {
	c.BS.WriteVaruint(uint64(len(s)))
	c.BS.WriteBool(true)
	c.BS.WriteBytes([]byte(s))
}

// StringOrFormat is the decoded form of a "string with optional
// format" sub-block body (§4.6 RootText, String encoding): either a
// literal string, or — when a format code follows the bytes in the
// same sub-block — the integer format code. Per §9's note, both may be
// present simultaneously on the wire; HasText/HasFormat track which
// fields were actually read rather than collapsing to one or the
// other.
type StringOrFormat struct {
	HasText  bool
	Text     string
	HasFormat bool
	Format   uint32
}

// ReadStringWithFormat reads a string-with-optional-format body already
// opened by the caller.
func ReadStringWithFormat(c *wire.Codec) (StringOrFormat, error) {
	n, err := c.BS.ReadVaruint()
	if err != nil {
		return StringOrFormat{}, err
	}
	isASCII, err := c.BS.ReadBool()
	if err != nil {
		return StringOrFormat{}, err
	}
	if !isASCII {
		return StringOrFormat{}, &scene.InvalidEncodingError{Reason: "is_ascii flag is false"}
	}
	raw, err := c.BS.ReadBytes(int(n))
	if err != nil {
		return StringOrFormat{}, err
	}
	if !utf8.Valid(raw) {
		return StringOrFormat{}, &scene.InvalidEncodingError{Reason: "bytes are not valid UTF-8"}
	}
	out := StringOrFormat{HasText: true, Text: string(raw)}
	if format, ferr := c.ReadU32(formatFieldIndex); ferr == nil {
		out.HasFormat = true
		out.Format = format
	}
	return out, nil
}

// WriteStringWithFormat writes a string-with-optional-format body.
func WriteStringWithFormat(c *wire.Codec, v StringOrFormat) {
	c.BS.WriteVaruint(uint64(len(v.Text)))
	c.BS.WriteBool(true)
	c.BS.WriteBytes([]byte(v.Text))
	if v.HasFormat {
		c.WriteU32(formatFieldIndex, v.Format)
	}
}

// ---- LWW register encoding (§4.6 LWW encoding) -------------------------
//
// lww<T> is a sub-block holding id:1 = timestamp, then the T-specific
// value at index 2 using T's native wire type.

func ReadLwwBool(c *wire.Codec) (LwwBool, error) {
	ts, err := c.ReadCrdtId(1)
	if err != nil {
		return LwwBool{}, err
	}
	v, err := c.ReadBool(2)
	if err != nil {
		return LwwBool{}, err
	}
	return LwwBool{Timestamp: ts, Value: v}, nil
}

func WriteLwwBool(c *wire.Codec, v LwwBool) {
	c.WriteCrdtId(1, v.Timestamp)
	c.WriteBool(2, v.Value)
}

func ReadLwwU8(c *wire.Codec) (LwwU8, error) {
	ts, err := c.ReadCrdtId(1)
	if err != nil {
		return LwwU8{}, err
	}
	v, err := c.ReadU8(2)
	if err != nil {
		return LwwU8{}, err
	}
	return LwwU8{Timestamp: ts, Value: v}, nil
}

func WriteLwwU8(c *wire.Codec, v LwwU8) {
	c.WriteCrdtId(1, v.Timestamp)
	c.WriteU8(2, v.Value)
}

func ReadLwwF32(c *wire.Codec) (LwwF32, error) {
	ts, err := c.ReadCrdtId(1)
	if err != nil {
		return LwwF32{}, err
	}
	v, err := c.ReadF32(2)
	if err != nil {
		return LwwF32{}, err
	}
	return LwwF32{Timestamp: ts, Value: v}, nil
}

func WriteLwwF32(c *wire.Codec, v LwwF32) {
	c.WriteCrdtId(1, v.Timestamp)
	c.WriteF32(2, v.Value)
}

func ReadLwwId(c *wire.Codec) (LwwId, error) {
	ts, err := c.ReadCrdtId(1)
	if err != nil {
		return LwwId{}, err
	}
	v, err := c.ReadCrdtId(2)
	if err != nil {
		return LwwId{}, err
	}
	return LwwId{Timestamp: ts, Value: v}, nil
}

func WriteLwwId(c *wire.Codec, v LwwId) {
	c.WriteCrdtId(1, v.Timestamp)
	c.WriteCrdtId(2, v.Value)
}

// ReadLwwString reads an lww<string>: id:1 = timestamp, then a string
// sub-block at index 2.
func ReadLwwString(c *wire.Codec) (LwwString, error) {
	ts, err := c.ReadCrdtId(1)
	if err != nil {
		return LwwString{}, err
	}
	if err := c.BeginSubBlock(2); err != nil {
		return LwwString{}, err
	}
	s, err := ReadString(c)
	if err != nil {
		return LwwString{}, err
	}
	if err := c.EndSubBlock(); err != nil {
		return LwwString{}, err
	}
	return LwwString{Timestamp: ts, Value: s}, nil
}

func WriteLwwString(c *wire.Codec, v LwwString) {
	c.WriteCrdtId(1, v.Timestamp)
	c.BeginSubBlockWrite(2)
	WriteString(c, v.Value)
	c.EndSubBlockWrite()
}

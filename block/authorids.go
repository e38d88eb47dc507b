package block

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rm-tablet/lines/wire"
)

// swapGuidBytes reverses the first three groups (4, 2, 2 bytes) of a
// raw 16-byte UUID in Microsoft GUID ordering, converting between it
// and RFC 4122 (big-endian) ordering. The transform is its own
// inverse, so the same function serves both read and write (§4.6
// AuthorIds: "UUID bytes map to the canonical ... string with the
// first three groups byte-reversed from the raw bytes").
func swapGuidBytes(raw [16]byte) [16]byte {
	var out [16]byte
	out[0], out[1], out[2], out[3] = raw[3], raw[2], raw[1], raw[0]
	out[4], out[5] = raw[5], raw[4]
	out[6], out[7] = raw[7], raw[6]
	copy(out[8:], raw[8:])
	return out
}

// ReadAuthorIds reads the AuthorIds block payload (§4.6): varuint N
// sub-blocks at index 0, each holding a length-prefixed UUID and a
// u16 author id.
func ReadAuthorIds(c *wire.Codec) (AuthorIds, error) {
	n, err := c.BS.ReadVaruint()
	if err != nil {
		return nil, err
	}
	out := make(AuthorIds, n)
	for i := uint64(0); i < n; i++ {
		if err := c.BeginSubBlock(0); err != nil {
			return nil, err
		}
		length, err := c.BS.ReadVaruint()
		if err != nil {
			return nil, err
		}
		raw, err := c.BS.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		authorId, err := c.BS.ReadU16()
		if err != nil {
			return nil, err
		}
		if err := c.EndSubBlock(); err != nil {
			return nil, err
		}

		var guid [16]byte
		copy(guid[:], raw)
		out[authorId] = uuid.UUID(swapGuidBytes(guid)).String()
	}
	return out, nil
}

// WriteAuthorIds emits an AuthorIds block payload for the given
// author_id -> UUID string mapping, in ascending author_id order so
// output is deterministic.
func WriteAuthorIds(c *wire.Codec, ids AuthorIds) error {
	authorIds := make([]uint16, 0, len(ids))
	for id := range ids {
		authorIds = append(authorIds, id)
	}
	sort.Slice(authorIds, func(i, j int) bool { return authorIds[i] < authorIds[j] })

	c.BS.WriteVaruint(uint64(len(authorIds)))
	for _, authorId := range authorIds {
		parsed, err := uuid.Parse(ids[authorId])
		if err != nil {
			return err
		}
		guid := swapGuidBytes([16]byte(parsed))

		c.BeginSubBlockWrite(0)
		c.BS.WriteVaruint(16)
		c.BS.WriteBytes(guid[:])
		c.BS.WriteU16(authorId)
		if err := c.EndSubBlockWrite(); err != nil {
			return err
		}
	}
	return nil
}


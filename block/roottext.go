package block

import "github.com/rm-tablet/lines/wire"

// TextItemEntry is one entry of RootText's text-item sequence: the
// CRDT-sequence bookkeeping common to all item blocks, plus the
// decoded string-or-format value.
type TextItemEntry struct {
	ItemId        CrdtId
	LeftId        CrdtId
	RightId       CrdtId
	DeletedLength uint32
	Value         *StringOrFormat
}

// FormatEntry is one entry of RootText's format-entries sequence: a
// raw (untagged) CrdtId key, a timestamp, and the paragraph style code
// carried in its sub-block behind the fixed magic byte 17.
type FormatEntry struct {
	Key       CrdtId
	Timestamp CrdtId
	Style     uint8
}

const formatEntryMagic = 17

// RootTextBlock is the decoded payload of a RootText block (type
// 0x07): §4.6's nested sub-block grammar around a text-item sequence
// and a format-entry sequence.
type RootTextBlock struct {
	BlockId   CrdtId
	Items     []TextItemEntry
	Formats   []FormatEntry
	PosX      float64
	PosY      float64
	Width     float32
}

// ReadRootText reads a RootText block payload (§4.6 RootText).
func ReadRootText(c *wire.Codec) (RootTextBlock, error) {
	blockId, err := c.ReadCrdtId(1)
	if err != nil {
		return RootTextBlock{}, err
	}

	if err := c.BeginSubBlock(2); err != nil {
		return RootTextBlock{}, err
	}

	items, err := readTextItems(c)
	if err != nil {
		return RootTextBlock{}, err
	}
	formats, err := readFormatEntries(c)
	if err != nil {
		return RootTextBlock{}, err
	}

	if err := c.EndSubBlock(); err != nil { // closes sub-block 2
		return RootTextBlock{}, err
	}

	if err := c.BeginSubBlock(3); err != nil {
		return RootTextBlock{}, err
	}
	posX, err := c.BS.ReadF64()
	if err != nil {
		return RootTextBlock{}, err
	}
	posY, err := c.BS.ReadF64()
	if err != nil {
		return RootTextBlock{}, err
	}
	if err := c.EndSubBlock(); err != nil {
		return RootTextBlock{}, err
	}

	width, err := c.ReadF32(4)
	if err != nil {
		return RootTextBlock{}, err
	}

	return RootTextBlock{BlockId: blockId, Items: items, Formats: formats, PosX: posX, PosY: posY, Width: width}, nil
}

func readTextItems(c *wire.Codec) ([]TextItemEntry, error) {
	if err := c.BeginSubBlock(1); err != nil {
		return nil, err
	}
	if err := c.BeginSubBlock(1); err != nil {
		return nil, err
	}
	n, err := c.BS.ReadVaruint()
	if err != nil {
		return nil, err
	}
	items := make([]TextItemEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		if err := c.BeginSubBlock(0); err != nil {
			return nil, err
		}
		itemId, err := c.ReadCrdtId(2)
		if err != nil {
			return nil, err
		}
		leftId, err := c.ReadCrdtId(3)
		if err != nil {
			return nil, err
		}
		rightId, err := c.ReadCrdtId(4)
		if err != nil {
			return nil, err
		}
		deletedLength, err := c.ReadU32(5)
		if err != nil {
			return nil, err
		}

		entry := TextItemEntry{ItemId: itemId, LeftId: leftId, RightId: rightId, DeletedLength: deletedLength}
		if c.PeekTag(6, wire.WireSubBlock) {
			if err := c.BeginSubBlock(6); err != nil {
				return nil, err
			}
			v, err := ReadStringWithFormat(c)
			if err != nil {
				return nil, err
			}
			if err := c.EndSubBlock(); err != nil {
				return nil, err
			}
			entry.Value = &v
		}

		if err := c.EndSubBlock(); err != nil {
			return nil, err
		}
		items = append(items, entry)
	}
	if err := c.EndSubBlock(); err != nil {
		return nil, err
	}
	if err := c.EndSubBlock(); err != nil {
		return nil, err
	}
	return items, nil
}

func readFormatEntries(c *wire.Codec) ([]FormatEntry, error) {
	if err := c.BeginSubBlock(2); err != nil {
		return nil, err
	}
	if err := c.BeginSubBlock(1); err != nil {
		return nil, err
	}
	m, err := c.BS.ReadVaruint()
	if err != nil {
		return nil, err
	}
	entries := make([]FormatEntry, 0, m)
	for i := uint64(0); i < m; i++ {
		key, err := c.BS.ReadCrdtId()
		if err != nil {
			return nil, err
		}
		timestamp, err := c.ReadCrdtId(1)
		if err != nil {
			return nil, err
		}
		if err := c.BeginSubBlock(2); err != nil {
			return nil, err
		}
		magic, err := c.BS.ReadU8()
		if err != nil {
			return nil, err
		}
		if magic != formatEntryMagic {
			return nil, &wire.UnexpectedBlockError{Reason: "format entry magic byte mismatch"}
		}
		style, err := c.BS.ReadU8()
		if err != nil {
			return nil, err
		}
		if err := c.EndSubBlock(); err != nil {
			return nil, err
		}
		entries = append(entries, FormatEntry{Key: key, Timestamp: timestamp, Style: style})
	}
	if err := c.EndSubBlock(); err != nil {
		return nil, err
	}
	if err := c.EndSubBlock(); err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteRootText writes a RootText block payload.
func WriteRootText(c *wire.Codec, rt RootTextBlock) error {
	c.WriteCrdtId(1, rt.BlockId)

	c.BeginSubBlockWrite(2)

	c.BeginSubBlockWrite(1)
	c.BeginSubBlockWrite(1)
	c.BS.WriteVaruint(uint64(len(rt.Items)))
	for _, item := range rt.Items {
		c.BeginSubBlockWrite(0)
		c.WriteCrdtId(2, item.ItemId)
		c.WriteCrdtId(3, item.LeftId)
		c.WriteCrdtId(4, item.RightId)
		c.WriteU32(5, item.DeletedLength)
		if item.Value != nil {
			c.BeginSubBlockWrite(6)
			WriteStringWithFormat(c, *item.Value)
			if err := c.EndSubBlockWrite(); err != nil {
				return err
			}
		}
		if err := c.EndSubBlockWrite(); err != nil {
			return err
		}
	}
	if err := c.EndSubBlockWrite(); err != nil {
		return err
	}
	if err := c.EndSubBlockWrite(); err != nil {
		return err
	}

	c.BeginSubBlockWrite(2)
	c.BeginSubBlockWrite(1)
	c.BS.WriteVaruint(uint64(len(rt.Formats)))
	for _, f := range rt.Formats {
		c.BS.WriteCrdtId(f.Key)
		c.WriteCrdtId(1, f.Timestamp)
		c.BeginSubBlockWrite(2)
		c.BS.WriteU8(formatEntryMagic)
		c.BS.WriteU8(f.Style)
		if err := c.EndSubBlockWrite(); err != nil {
			return err
		}
	}
	if err := c.EndSubBlockWrite(); err != nil {
		return err
	}
	if err := c.EndSubBlockWrite(); err != nil {
		return err
	}

	if err := c.EndSubBlockWrite(); err != nil { // closes sub-block 2
		return err
	}

	c.BeginSubBlockWrite(3)
	c.BS.WriteF64(rt.PosX)
	c.BS.WriteF64(rt.PosY)
	if err := c.EndSubBlockWrite(); err != nil {
		return err
	}

	c.WriteF32(4, rt.Width)
	return nil
}

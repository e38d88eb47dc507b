package block

import "github.com/rm-tablet/lines/wire"

// ReadPageInfo reads a PageInfo block payload (§4.6): five u32s,
// the last (type_folio_use) optional, defaulting to 0.
func ReadPageInfo(c *wire.Codec) (PageInfo, error) {
	loads, err := c.ReadU32(1)
	if err != nil {
		return PageInfo{}, err
	}
	merges, err := c.ReadU32(2)
	if err != nil {
		return PageInfo{}, err
	}
	textChars, err := c.ReadU32(3)
	if err != nil {
		return PageInfo{}, err
	}
	textLines, err := c.ReadU32(4)
	if err != nil {
		return PageInfo{}, err
	}
	folioUse := c.ReadU32Optional(5, 0)
	return PageInfo{
		Loads:        loads,
		Merges:       merges,
		TextChars:    textChars,
		TextLines:    textLines,
		TypeFolioUse: folioUse,
	}, nil
}

// WritePageInfo writes a PageInfo block payload. TypeFolioUse is
// omitted when zero, matching the reader's default.
func WritePageInfo(c *wire.Codec, p PageInfo) {
	c.WriteU32(1, p.Loads)
	c.WriteU32(2, p.Merges)
	c.WriteU32(3, p.TextChars)
	c.WriteU32(4, p.TextLines)
	if p.TypeFolioUse != 0 {
		c.WriteU32(5, p.TypeFolioUse)
	}
}

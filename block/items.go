package block

import (
	"github.com/rm-tablet/lines/scene"
	"github.com/rm-tablet/lines/wire"
)

// ItemValueKind discriminates SceneItemBlock.Value's variants.
type ItemValueKind uint8

const (
	ItemValueNone ItemValueKind = iota
	ItemValueLine
	ItemValueGroupRef
	ItemValueGlyphRange
)

// LineValue is the decoded payload of a Line item's sub-block (§4.6
// Line encoding).
type LineValue struct {
	ToolId         uint32
	ColorId        uint32
	ThicknessScale float64
	StartingLength float32
	Points         []scene.Point
	Encoding       scene.PointEncoding
	Timestamp      CrdtId
	MoveId         *CrdtId
}

// GlyphRangeValue is the decoded payload of a Glyph item's sub-block
// (§4.6 GlyphRange encoding).
type GlyphRangeValue struct {
	HasStart   bool
	Start      uint32
	Length     uint32
	ColorId    uint32
	Text       string
	Rectangles []scene.Rectangle
}

// ItemValue is the discriminated value carried by a scene item block
// when it has a sub-block at index 6 (§4.6). Exactly one field is set
// according to Kind; ItemValueNone means the sub-block (if present at
// all) held only the discriminator byte.
type ItemValue struct {
	Kind       ItemValueKind
	Line       *LineValue
	GroupRef   *CrdtId
	GlyphRange *GlyphRangeValue
}

// SceneItemBlock is the common-prefix payload shared by the five item
// block types (Glyph 0x03, Group 0x04, Line 0x05, SceneText 0x06,
// Tombstone 0x08).
type SceneItemBlock struct {
	BlockType     Type
	ParentId      CrdtId
	ItemId        CrdtId
	LeftId        CrdtId
	RightId       CrdtId
	DeletedLength uint32
	Value         *ItemValue
}

// ReadSceneItemBlock reads the common item-block prefix and, if present,
// the discriminated value sub-block at index 6. pointEncoding selects
// how a Line's point blob is interpreted.
func ReadSceneItemBlock(c *wire.Codec, blockType Type, pointEncoding scene.PointEncoding) (SceneItemBlock, error) {
	parentId, err := c.ReadCrdtId(1)
	if err != nil {
		return SceneItemBlock{}, err
	}
	itemId, err := c.ReadCrdtId(2)
	if err != nil {
		return SceneItemBlock{}, err
	}
	leftId, err := c.ReadCrdtId(3)
	if err != nil {
		return SceneItemBlock{}, err
	}
	rightId, err := c.ReadCrdtId(4)
	if err != nil {
		return SceneItemBlock{}, err
	}
	deletedLength, err := c.ReadU32(5)
	if err != nil {
		return SceneItemBlock{}, err
	}

	block := SceneItemBlock{
		BlockType:     blockType,
		ParentId:      parentId,
		ItemId:        itemId,
		LeftId:        leftId,
		RightId:       rightId,
		DeletedLength: deletedLength,
	}

	if !c.PeekTag(6, wire.WireSubBlock) {
		return block, nil
	}
	if err := c.BeginSubBlock(6); err != nil {
		return SceneItemBlock{}, err
	}
	if _, err := c.BS.ReadU8(); err != nil { // discriminator, re-states blockType
		return SceneItemBlock{}, err
	}

	value, err := readItemValue(c, blockType, pointEncoding)
	if err != nil {
		return SceneItemBlock{}, err
	}
	if err := c.EndSubBlock(); err != nil {
		return SceneItemBlock{}, err
	}
	block.Value = value
	return block, nil
}

func readItemValue(c *wire.Codec, blockType Type, pointEncoding scene.PointEncoding) (*ItemValue, error) {
	switch blockType {
	case TypeSceneLine:
		lv, err := readLineValue(c, pointEncoding)
		if err != nil {
			return nil, err
		}
		return &ItemValue{Kind: ItemValueLine, Line: &lv}, nil
	case TypeSceneGroup:
		childId, err := c.ReadCrdtId(2)
		if err != nil {
			return nil, err
		}
		return &ItemValue{Kind: ItemValueGroupRef, GroupRef: &childId}, nil
	case TypeSceneGlyph:
		gv, err := readGlyphRangeValue(c)
		if err != nil {
			return nil, err
		}
		return &ItemValue{Kind: ItemValueGlyphRange, GlyphRange: &gv}, nil
	case TypeSceneTombstone, TypeSceneText:
		return &ItemValue{Kind: ItemValueNone}, nil
	default:
		return nil, &UnreadableBlock{BlockType: blockType, Err: errUnknownItemKind}
	}
}

var errUnknownItemKind = &wire.UnexpectedBlockError{Reason: "scene item block has no known value encoding"}

func readLineValue(c *wire.Codec, encoding scene.PointEncoding) (LineValue, error) {
	toolId, err := c.ReadU32(1)
	if err != nil {
		return LineValue{}, err
	}
	colorId, err := c.ReadU32(2)
	if err != nil {
		return LineValue{}, err
	}
	thicknessScale, err := c.ReadF64(3)
	if err != nil {
		return LineValue{}, err
	}
	startingLength, err := c.ReadF32(4)
	if err != nil {
		return LineValue{}, err
	}

	if err := c.BeginSubBlock(5); err != nil {
		return LineValue{}, err
	}
	blobLen := c.RemainingInScope()
	points, err := readPointBlob(c, blobLen, encoding)
	if err != nil {
		return LineValue{}, err
	}
	if err := c.EndSubBlock(); err != nil {
		return LineValue{}, err
	}

	timestamp, err := c.ReadCrdtId(6)
	if err != nil {
		return LineValue{}, err
	}

	lv := LineValue{
		ToolId:         toolId,
		ColorId:        colorId,
		ThicknessScale: thicknessScale,
		StartingLength: startingLength,
		Points:         points,
		Encoding:       encoding,
		Timestamp:      timestamp,
	}

	if c.RemainingInScope() >= 3 {
		moveId, err := c.ReadCrdtId(7)
		if err != nil {
			return LineValue{}, err
		}
		lv.MoveId = &moveId
	}
	return lv, nil
}

func readPointBlob(c *wire.Codec, blobLen int, encoding scene.PointEncoding) ([]scene.Point, error) {
	size := scene.V2PointSize
	if encoding == scene.PointEncodingV1 {
		size = scene.V1PointSize
	}
	numPoints := blobLen / size
	points := make([]scene.Point, 0, numPoints)
	for i := 0; i < numPoints; i++ {
		x, err := c.BS.ReadF32()
		if err != nil {
			return nil, err
		}
		y, err := c.BS.ReadF32()
		if err != nil {
			return nil, err
		}
		if encoding == scene.PointEncodingV1 {
			speed, err := c.BS.ReadF32()
			if err != nil {
				return nil, err
			}
			direction, err := c.BS.ReadF32()
			if err != nil {
				return nil, err
			}
			width, err := c.BS.ReadF32()
			if err != nil {
				return nil, err
			}
			pressure, err := c.BS.ReadF32()
			if err != nil {
				return nil, err
			}
			points = append(points, scene.DecodeV1Point(x, y, speed, width, direction, pressure))
		} else {
			speed, err := c.BS.ReadU16()
			if err != nil {
				return nil, err
			}
			width, err := c.BS.ReadU16()
			if err != nil {
				return nil, err
			}
			direction, err := c.BS.ReadU8()
			if err != nil {
				return nil, err
			}
			pressure, err := c.BS.ReadU8()
			if err != nil {
				return nil, err
			}
			points = append(points, scene.DecodeV2Point(x, y, speed, width, direction, pressure))
		}
	}
	return points, nil
}

func writePointBlob(c *wire.Codec, points []scene.Point, encoding scene.PointEncoding) {
	for _, p := range points {
		if encoding == scene.PointEncodingV1 {
			x, y, speed, width, direction, pressure := scene.EncodeV1Point(p)
			c.BS.WriteF32(x)
			c.BS.WriteF32(y)
			c.BS.WriteF32(speed)
			c.BS.WriteF32(direction)
			c.BS.WriteF32(width)
			c.BS.WriteF32(pressure)
		} else {
			x, y, speed, width, direction, pressure := scene.EncodeV2Point(p)
			c.BS.WriteF32(x)
			c.BS.WriteF32(y)
			c.BS.WriteU16(speed)
			c.BS.WriteU16(width)
			c.BS.WriteU8(direction)
			c.BS.WriteU8(pressure)
		}
	}
}

func readGlyphRangeValue(c *wire.Codec) (GlyphRangeValue, error) {
	var g GlyphRangeValue
	if c.PeekTag(2, wire.WireFour) {
		start, err := c.ReadU32(2)
		if err != nil {
			return GlyphRangeValue{}, err
		}
		length, err := c.ReadU32(3)
		if err != nil {
			return GlyphRangeValue{}, err
		}
		g.HasStart, g.Start, g.Length = true, start, length
	}

	colorId, err := c.ReadU32(4)
	if err != nil {
		return GlyphRangeValue{}, err
	}
	g.ColorId = colorId

	if err := c.BeginSubBlock(5); err != nil {
		return GlyphRangeValue{}, err
	}
	text, err := ReadString(c)
	if err != nil {
		return GlyphRangeValue{}, err
	}
	if err := c.EndSubBlock(); err != nil {
		return GlyphRangeValue{}, err
	}
	g.Text = text

	if !g.HasStart {
		g.Length = uint32(len(text))
	}

	if err := c.BeginSubBlock(6); err != nil {
		return GlyphRangeValue{}, err
	}
	n, err := c.BS.ReadVaruint()
	if err != nil {
		return GlyphRangeValue{}, err
	}
	rects := make([]scene.Rectangle, 0, n)
	for i := uint64(0); i < n; i++ {
		x, err := c.BS.ReadF64()
		if err != nil {
			return GlyphRangeValue{}, err
		}
		y, err := c.BS.ReadF64()
		if err != nil {
			return GlyphRangeValue{}, err
		}
		w, err := c.BS.ReadF64()
		if err != nil {
			return GlyphRangeValue{}, err
		}
		h, err := c.BS.ReadF64()
		if err != nil {
			return GlyphRangeValue{}, err
		}
		rects = append(rects, scene.Rectangle{X: x, Y: y, W: w, H: h})
	}
	if err := c.EndSubBlock(); err != nil {
		return GlyphRangeValue{}, err
	}
	g.Rectangles = rects
	return g, nil
}

// WriteSceneItemBlock writes the common item-block prefix and, if
// block.Value is non-nil, the discriminated value sub-block at index 6.
func WriteSceneItemBlock(c *wire.Codec, block SceneItemBlock) error {
	c.WriteCrdtId(1, block.ParentId)
	c.WriteCrdtId(2, block.ItemId)
	c.WriteCrdtId(3, block.LeftId)
	c.WriteCrdtId(4, block.RightId)
	c.WriteU32(5, block.DeletedLength)

	if block.Value == nil {
		return nil
	}

	c.BeginSubBlockWrite(6)
	c.BS.WriteU8(uint8(block.BlockType))
	if err := writeItemValue(c, block.Value); err != nil {
		return err
	}
	return c.EndSubBlockWrite()
}

func writeItemValue(c *wire.Codec, v *ItemValue) error {
	switch v.Kind {
	case ItemValueLine:
		writeLineValue(c, *v.Line)
	case ItemValueGroupRef:
		c.WriteCrdtId(2, *v.GroupRef)
	case ItemValueGlyphRange:
		writeGlyphRangeValue(c, *v.GlyphRange)
	case ItemValueNone:
		// discriminator byte only
	default:
		return &wire.UnexpectedBlockError{Reason: "unknown item value kind"}
	}
	return nil
}

func writeLineValue(c *wire.Codec, lv LineValue) {
	c.WriteU32(1, lv.ToolId)
	c.WriteU32(2, lv.ColorId)
	c.WriteF64(3, lv.ThicknessScale)
	c.WriteF32(4, lv.StartingLength)

	c.BeginSubBlockWrite(5)
	writePointBlob(c, lv.Points, lv.Encoding)
	c.EndSubBlockWrite()

	c.WriteCrdtId(6, lv.Timestamp)
	if lv.MoveId != nil {
		c.WriteCrdtId(7, *lv.MoveId)
	}
}

func writeGlyphRangeValue(c *wire.Codec, g GlyphRangeValue) {
	if g.HasStart {
		c.WriteU32(2, g.Start)
		c.WriteU32(3, g.Length)
	}
	c.WriteU32(4, g.ColorId)

	c.BeginSubBlockWrite(5)
	WriteString(c, g.Text)
	c.EndSubBlockWrite()

	c.BeginSubBlockWrite(6)
	c.BS.WriteVaruint(uint64(len(g.Rectangles)))
	for _, r := range g.Rectangles {
		c.BS.WriteF64(r.X)
		c.BS.WriteF64(r.Y)
		c.BS.WriteF64(r.W)
		c.BS.WriteF64(r.H)
	}
	c.EndSubBlockWrite()
}

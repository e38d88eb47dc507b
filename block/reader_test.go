package block

import (
	"testing"

	"github.com/rm-tablet/lines/scene"
	"github.com/rm-tablet/lines/wire"
)

func crdtId(author uint8, counter uint64) CrdtId {
	return CrdtId{Author: author, Counter: counter}
}

// S1: empty document round-trip through the block stream.
func TestEmptyBlockStreamRoundTrip(t *testing.T) {
	w := NewWriter()
	r := NewReader(w.Bytes())
	if _, err := r.Next(); err != wire.ErrEndOfStream {
		t.Fatalf("expected immediate end of stream, got %v", err)
	}
}

// S5: an unknown block type is captured as an UnreadableBlock and the
// stream continues past it.
func TestUnknownBlockTypeRecovered(t *testing.T) {
	bw := wire.NewBlockWriter()
	if err := bw.WriteBlock(0xFE, 0, 0, func(c *wire.Codec) error {
		c.BS.WriteBytes([]byte{0xDE, 0xAD, 0xBE, 0xEF})
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := bw.WriteBlock(byte(TypePageInfo), 0, 0, func(c *wire.Codec) error {
		WritePageInfo(c, PageInfo{Loads: 1})
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	r := &Reader{br: wire.NewBlockReader(bw.Bytes())}
	first, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if first.Unreadable == nil {
		t.Fatalf("expected Unreadable, got %+v", first)
	}
	if string(first.Unreadable.Bytes) != "\xDE\xAD\xBE\xEF" {
		t.Fatalf("got %x want DEADBEEF", first.Unreadable.Bytes)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if second.PageInfo == nil || second.PageInfo.Loads != 1 {
		t.Fatalf("expected the block after the unreadable one to parse cleanly, got %+v", second)
	}

	if _, err := r.Next(); err != wire.ErrEndOfStream {
		t.Fatalf("expected end of stream, got %v", err)
	}
}

func TestAuthorIdsRoundTrip(t *testing.T) {
	w := NewWriter()
	ids := AuthorIds{1: "00000000-0000-0000-0000-000000000001"}
	if err := w.WriteAuthorIds(ids); err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())
	d, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if d.AuthorIds == nil || d.AuthorIds[1] != "00000000-0000-0000-0000-000000000001" {
		t.Fatalf("got %+v", d.AuthorIds)
	}
}

// S2-adjacent: a SceneLineItem block round-trips its common prefix and
// its Line value, including the point blob.
func TestSceneLineItemRoundTrip(t *testing.T) {
	w := NewWriter()
	line := LineValue{
		ToolId:         uint32(scene.PenFineliner1),
		ColorId:        uint32(scene.PenColorBlue),
		ThicknessScale: 2.0,
		StartingLength: 0,
		Points: []scene.Point{
			{X: 10, Y: 20, Speed: 100, Width: 128, Direction: 40, Pressure: 200},
			{X: 11, Y: 21, Speed: 120, Width: 130, Direction: 40, Pressure: 210},
		},
		Encoding:  scene.PointEncodingV2,
		Timestamp: crdtId(0, 1),
	}
	item := SceneItemBlock{
		BlockType:     TypeSceneLine,
		ParentId:      crdtId(0, 2),
		ItemId:        crdtId(1, 1),
		LeftId:        crdtId(0, 0),
		RightId:       crdtId(0, 0),
		DeletedLength: 0,
		Value:         &ItemValue{Kind: ItemValueLine, Line: &line},
	}
	if err := w.WriteSceneItem(item, 0, 2); err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())
	d, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if d.SceneItem == nil {
		t.Fatalf("expected a SceneItem, got %+v", d)
	}
	got := d.SceneItem
	if got.ItemId != item.ItemId || got.DeletedLength != 0 {
		t.Fatalf("prefix mismatch: %+v", got)
	}
	if got.Value == nil || got.Value.Kind != ItemValueLine {
		t.Fatalf("expected a line value, got %+v", got.Value)
	}
	if len(got.Value.Line.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got.Value.Line.Points))
	}
	if got.Value.Line.Points[0] != line.Points[0] {
		t.Fatalf("point 0 mismatch: got %+v want %+v", got.Value.Line.Points[0], line.Points[0])
	}
}

func TestSceneTombstoneRoundTrip(t *testing.T) {
	w := NewWriter()
	item := SceneItemBlock{
		BlockType:     TypeSceneTombstone,
		ParentId:      crdtId(0, 2),
		ItemId:        crdtId(1, 10),
		LeftId:        crdtId(0, 0),
		RightId:       crdtId(0, 0),
		DeletedLength: 3,
		Value:         &ItemValue{Kind: ItemValueNone},
	}
	if err := w.WriteSceneItem(item, 0, 2); err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())
	d, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if d.SceneItem == nil || d.SceneItem.DeletedLength != 3 {
		t.Fatalf("got %+v", d.SceneItem)
	}
}

func TestGlyphRangeRoundTrip(t *testing.T) {
	w := NewWriter()
	item := SceneItemBlock{
		BlockType:     TypeSceneGlyph,
		ParentId:      crdtId(0, 2),
		ItemId:        crdtId(1, 5),
		LeftId:        crdtId(0, 0),
		RightId:       crdtId(0, 0),
		DeletedLength: 0,
		Value: &ItemValue{Kind: ItemValueGlyphRange, GlyphRange: &GlyphRangeValue{
			ColorId:    uint32(scene.PenColorYellow),
			Text:       "hello",
			Rectangles: []scene.Rectangle{{X: 1, Y: 2, W: 3, H: 4}},
		}},
	}
	if err := w.WriteSceneItem(item, 0, 2); err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())
	d, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	g := d.SceneItem.Value.GlyphRange
	if g.Text != "hello" || g.HasStart {
		t.Fatalf("got %+v", g)
	}
	if g.Length != 5 {
		t.Fatalf("expected implicit length 5, got %d", g.Length)
	}
	if len(g.Rectangles) != 1 || g.Rectangles[0].W != 3 {
		t.Fatalf("got %+v", g.Rectangles)
	}
}

func TestRootTextRoundTrip(t *testing.T) {
	w := NewWriter()
	rt := RootTextBlock{
		BlockId: crdtId(0, 1),
		Items: []TextItemEntry{
			{ItemId: crdtId(1, 1), LeftId: crdtId(0, 0), RightId: crdtId(0, 0), Value: &StringOrFormat{HasText: true, Text: "hi"}},
		},
		Formats: []FormatEntry{
			{Key: crdtId(1, 1), Timestamp: crdtId(1, 2), Style: uint8(scene.ParagraphBullet)},
		},
		PosX:  1.5,
		PosY:  2.5,
		Width: 100,
	}
	if err := w.WriteRootText(rt); err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())
	d, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if d.RootText == nil {
		t.Fatalf("expected RootText, got %+v", d)
	}
	if len(d.RootText.Items) != 1 || d.RootText.Items[0].Value.Text != "hi" {
		t.Fatalf("got %+v", d.RootText.Items)
	}
	if len(d.RootText.Formats) != 1 || d.RootText.Formats[0].Style != uint8(scene.ParagraphBullet) {
		t.Fatalf("got %+v", d.RootText.Formats)
	}
	if d.RootText.PosX != 1.5 || d.RootText.PosY != 2.5 || d.RootText.Width != 100 {
		t.Fatalf("got %+v", d.RootText)
	}
}

package scene

import (
	"fmt"

	"github.com/rm-tablet/lines/crdt"
)

// Rectangle is an axis-aligned box in document coordinates, used by
// GlyphRange to mark the highlighted regions of text.
type Rectangle struct {
	X, Y, W, H float64
}

// Line is a pen stroke: its tool and color, the sampled Points along
// its path, and the thickness/length telemetry captured at draw time.
type Line struct {
	Color          PenColor
	Tool           Pen
	Points         []Point
	ThicknessScale float64
	StartingLength float32
	MoveId         *CrdtId
}

// GlyphRange is a highlight: the text it covers, optionally addressed
// by a start/length pair into the containing document, and the
// rectangles the tablet recorded for where the highlight is drawn.
type GlyphRange struct {
	Start      *int32
	Length     int32
	Text       string
	Color      PenColor
	Rectangles []Rectangle
}

// EffectiveLength returns Length, or len(Text) when Start is absent and
// Length was never set on the wire (spec §4.6: "If start is absent on
// the wire, length is implicitly text.length").
func (g GlyphRange) EffectiveLength() int32 {
	if g.Start == nil {
		return int32(len(g.Text))
	}
	return g.Length
}

// AnchorRegisters is Group's four optional LWW registers. The wire
// grammar requires them to be either all present or all absent (spec
// §4.5); modelling them as a single pointer makes that invariant
// unrepresentable otherwise than correctly.
type AnchorRegisters struct {
	AnchorId        LwwValue[CrdtId]
	AnchorType      LwwValue[uint8]
	AnchorThreshold LwwValue[float32]
	AnchorOriginX   LwwValue[float32]
}

// Group is a container node in the scene tree: an ordered, CRDT-managed
// child sequence plus its LWW-register properties.
type Group struct {
	NodeId   CrdtId
	Children *crdt.Sequence[SceneItem]
	Label    LwwValue[string]
	Visible  LwwValue[bool]
	Anchor   *AnchorRegisters
}

// NewGroup creates an empty Group at id with the default label ("")
// and visible (true) registers, both timestamped at the end-marker.
func NewGroup(id CrdtId) *Group {
	return &Group{
		NodeId:   id,
		Children: crdt.NewSequence[SceneItem](),
		Label:    DefaultLwwValue(""),
		Visible:  DefaultLwwValue(true),
	}
}

// TextRunKind discriminates the two shapes a RootText sequence entry
// can take (spec §4.6 RootText: "its decoded form is either the string
// value or, if a format code is present, the integer format code").
type TextRunKind uint8

const (
	TextRunString TextRunKind = iota
	TextRunBreak
)

// TextRun is one entry of Text.Items: either a run of literal
// characters or a paragraph-break marker carrying a format code.
type TextRun struct {
	Kind  TextRunKind
	Text  string
	Style ParagraphStyle
}

// StringRun builds a TextRunString entry.
func StringRun(s string) TextRun {
	return TextRun{Kind: TextRunString, Text: s}
}

// BreakRun builds a TextRunBreak entry carrying the given format code.
func BreakRun(style ParagraphStyle) TextRun {
	return TextRun{Kind: TextRunBreak, Style: style}
}

// AsString returns the run's text and true if it is a TextRunString.
func (r TextRun) AsString() (string, bool) {
	if r.Kind != TextRunString {
		return "", false
	}
	return r.Text, true
}

// AsBreak returns the run's paragraph style and true if it is a
// TextRunBreak.
func (r TextRun) AsBreak() (ParagraphStyle, bool) {
	if r.Kind != TextRunBreak {
		return 0, false
	}
	return r.Style, true
}

// Text is the document's single root text content block: a CRDT
// sequence of runs addressed by CrdtId, plus a side map of paragraph
// styles keyed by the id of the character the break sits before (spec
// §3: "Text's styles map uses the CrdtId of the character before which
// the paragraph break sits as its key (plus the end-marker)").
type Text struct {
	Items  *crdt.Sequence[TextRun]
	Styles map[CrdtId]LwwValue[ParagraphStyle]
	PosX   float64
	PosY   float64
	Width  float32
}

// NewText creates an empty Text content block.
func NewText() *Text {
	return &Text{
		Items:  crdt.NewSequence[TextRun](),
		Styles: make(map[CrdtId]LwwValue[ParagraphStyle]),
	}
}

// SceneItemKind discriminates the members of the SceneItem union (spec
// §3: "SceneItem is the tagged union {Line, Group, Text, GlyphRange}").
type SceneItemKind uint8

const (
	SceneItemLine SceneItemKind = iota
	SceneItemGroup
	SceneItemText
	SceneItemGlyphRange
)

// SceneItem is the value stored in a Group's child CrdtSequence: one
// of Line, Group, Text, or GlyphRange. Exactly one of the typed
// accessors below matches Kind.
type SceneItem struct {
	Kind       SceneItemKind
	Line       *Line
	Group      *Group
	Text       *Text
	GlyphRange *GlyphRange
}

func LineItem(l *Line) SceneItem             { return SceneItem{Kind: SceneItemLine, Line: l} }
func GroupItem(g *Group) SceneItem           { return SceneItem{Kind: SceneItemGroup, Group: g} }
func TextItem(t *Text) SceneItem             { return SceneItem{Kind: SceneItemText, Text: t} }
func GlyphRangeItem(g *GlyphRange) SceneItem { return SceneItem{Kind: SceneItemGlyphRange, GlyphRange: g} }

func (s SceneItem) String() string {
	switch s.Kind {
	case SceneItemLine:
		return fmt.Sprintf("Line(%d points)", len(s.Line.Points))
	case SceneItemGroup:
		return fmt.Sprintf("Group(%d.%d)", s.Group.NodeId.Author, s.Group.NodeId.Counter)
	case SceneItemText:
		return "Text"
	case SceneItemGlyphRange:
		return fmt.Sprintf("GlyphRange(%q)", s.GlyphRange.Text)
	default:
		return "SceneItem(?)"
	}
}

package tree

import (
	"go.uber.org/zap"

	"github.com/rm-tablet/lines/block"
	"github.com/rm-tablet/lines/crdt"
	"github.com/rm-tablet/lines/scene"
	"github.com/rm-tablet/lines/wire"
)

// Builder assembles a SceneTree from a block.Reader stream in one pass
// (§4.7). It is stricter than the block reader: a ParentMissingError
// aborts the pass, while an UnreadableBlock at the block layer is only
// logged and skipped, since that recovery already happened in Reader.
type Builder struct {
	Log *zap.Logger
}

// NewBuilder creates a Builder. A nil logger falls back to a no-op
// logger.
func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{Log: log}
}

// Build consumes every block in r and returns the assembled tree.
func (b *Builder) Build(r *block.Reader) (*SceneTree, error) {
	t := New()
	prev := r.OnExtraData
	r.OnExtraData = func(extra []byte) {
		if prev != nil {
			prev(extra)
		}
		b.Log.Warn("extra data left in block scope", zap.Int("bytes", len(extra)))
	}

	for {
		d, err := r.Next()
		if err == wire.ErrEndOfStream {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		if err := b.apply(t, d); err != nil {
			return nil, err
		}
	}
}

func (b *Builder) apply(t *SceneTree, d *block.Decoded) error {
	switch {
	case d.Unreadable != nil:
		b.Log.Warn("unreadable block skipped",
			zap.String("type", d.Unreadable.BlockType.String()),
			zap.Int("offset", d.Unreadable.Offset),
			zap.Error(d.Unreadable.Err))
		return nil

	case d.SceneTreeNode != nil:
		t.AddNode(d.SceneTreeNode.TreeId, d.SceneTreeNode.ParentId)
		return nil

	case d.TreeNodeProps != nil:
		return b.applyTreeNode(t, d.TreeNodeProps)

	case d.SceneItem != nil:
		return b.applySceneItem(t, d.SceneItem)

	case d.RootText != nil:
		text, err := rootTextToScene(d.RootText)
		if err != nil {
			return err
		}
		t.RootText = text
		return nil

	default:
		// MigrationInfo, PageInfo, SceneInfo, AuthorIds: metadata for
		// other consumers (§4.7), not part of the tree shape.
		return nil
	}
}

func (b *Builder) applyTreeNode(t *SceneTree, props *block.TreeNodeProps) error {
	g, ok := t.Group(props.NodeId)
	if !ok {
		// §3 Invariants: a TreeNodeBlock may precede the SceneTreeBlock
		// that formally creates its node; the node is created with
		// default children rather than rejected.
		g = t.AddNode(props.NodeId, scene.CrdtId{})
	}
	g.Label = scene.LwwValue[string]{Timestamp: props.Label.Timestamp, Value: props.Label.Value}
	g.Visible = scene.LwwValue[bool]{Timestamp: props.Visible.Timestamp, Value: props.Visible.Value}
	if props.Anchor != nil {
		g.Anchor = &scene.AnchorRegisters{
			AnchorId:        scene.LwwValue[scene.CrdtId]{Timestamp: props.Anchor.AnchorId.Timestamp, Value: props.Anchor.AnchorId.Value},
			AnchorType:      scene.LwwValue[uint8]{Timestamp: props.Anchor.AnchorType.Timestamp, Value: props.Anchor.AnchorType.Value},
			AnchorThreshold: scene.LwwValue[float32]{Timestamp: props.Anchor.AnchorThreshold.Timestamp, Value: props.Anchor.AnchorThreshold.Value},
			AnchorOriginX:   scene.LwwValue[float32]{Timestamp: props.Anchor.AnchorOriginX.Timestamp, Value: props.Anchor.AnchorOriginX.Value},
		}
	}
	return nil
}

func (b *Builder) applySceneItem(t *SceneTree, si *block.SceneItemBlock) error {
	if si.DeletedLength > 0 {
		return t.AttachItem(si.ParentId, si.ItemId, si.LeftId, si.RightId, si.DeletedLength, scene.SceneItem{})
	}
	if si.Value == nil {
		return nil
	}

	switch si.Value.Kind {
	case block.ItemValueLine:
		line := lineValueToScene(si.Value.Line)
		return t.AttachItem(si.ParentId, si.ItemId, si.LeftId, si.RightId, 0, scene.LineItem(&line))

	case block.ItemValueGlyphRange:
		gr := glyphRangeValueToScene(si.Value.GlyphRange)
		return t.AttachItem(si.ParentId, si.ItemId, si.LeftId, si.RightId, 0, scene.GlyphRangeItem(&gr))

	case block.ItemValueGroupRef:
		child := t.AddNode(*si.Value.GroupRef, si.ParentId)
		return t.AttachItem(si.ParentId, si.ItemId, si.LeftId, si.RightId, 0, scene.GroupItem(child))

	default:
		// A SceneText item block carries no inline value (its content
		// lives in the page's RootText); it is ignored here, same as
		// the other metadata-only block types.
		return nil
	}
}

func lineValueToScene(lv *block.LineValue) scene.Line {
	return scene.Line{
		Color:          scene.PenColor(lv.ColorId),
		Tool:           scene.Pen(lv.ToolId),
		Points:         lv.Points,
		ThicknessScale: lv.ThicknessScale,
		StartingLength: lv.StartingLength,
		MoveId:         lv.MoveId,
	}
}

func glyphRangeValueToScene(gv *block.GlyphRangeValue) scene.GlyphRange {
	gr := scene.GlyphRange{
		Length:     int32(gv.Length),
		Text:       gv.Text,
		Color:      scene.PenColor(gv.ColorId),
		Rectangles: gv.Rectangles,
	}
	if gv.HasStart {
		start := int32(gv.Start)
		gr.Start = &start
	}
	return gr
}

func rootTextToScene(rt *block.RootTextBlock) (*scene.Text, error) {
	text := scene.NewText()
	text.PosX = rt.PosX
	text.PosY = rt.PosY
	text.Width = rt.Width

	for _, item := range rt.Items {
		run := scene.BreakRun(scene.ParagraphBasic)
		if item.Value != nil {
			if item.Value.HasFormat {
				run = scene.BreakRun(scene.ParagraphStyle(item.Value.Format))
			} else if item.Value.HasText {
				run = scene.StringRun(item.Value.Text)
			}
		}
		value := crdt.Present(run)
		if item.DeletedLength > 0 {
			value = crdt.Tombstone[scene.TextRun]()
		}
		if err := text.Items.Insert(crdt.Item[scene.TextRun]{
			ItemId:        item.ItemId,
			LeftId:        item.LeftId,
			RightId:       item.RightId,
			DeletedLength: item.DeletedLength,
			Value:         value,
		}); err != nil {
			return nil, err
		}
	}
	for _, f := range rt.Formats {
		text.Styles[f.Key] = scene.LwwValue[scene.ParagraphStyle]{
			Timestamp: f.Timestamp,
			Value:     scene.ParagraphStyle(f.Style),
		}
	}
	return text, nil
}

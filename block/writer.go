package block

import (
	"github.com/rm-tablet/lines/scene"
	"github.com/rm-tablet/lines/wire"
)

// Writer emits a scene file's block stream in the order recommended by
// §6's "Block ordering" convention: callers are expected to call the
// Write* methods in that order, but nothing here enforces it beyond
// what SceneTree's "parent exists before children" invariant requires
// at read time.
type Writer struct {
	bw *wire.BlockWriter
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{bw: wire.NewBlockWriter()}
}

// Bytes returns the block stream built so far (to be appended after the
// 43-byte file header).
func (w *Writer) Bytes() []byte {
	return w.bw.Bytes()
}

func (w *Writer) WriteAuthorIds(ids AuthorIds) error {
	return w.bw.WriteBlock(byte(TypeAuthorIds), 0, 0, func(c *wire.Codec) error {
		return WriteAuthorIds(c, ids)
	})
}

func (w *Writer) WriteMigrationInfo(m MigrationInfo) error {
	return w.bw.WriteBlock(byte(TypeMigrationInfo), 0, 0, func(c *wire.Codec) error {
		WriteMigrationInfo(c, m)
		return nil
	})
}

func (w *Writer) WritePageInfo(p PageInfo) error {
	return w.bw.WriteBlock(byte(TypePageInfo), 0, 0, func(c *wire.Codec) error {
		WritePageInfo(c, p)
		return nil
	})
}

func (w *Writer) WriteSceneInfo(info SceneInfo) error {
	return w.bw.WriteBlock(byte(TypeSceneInfo), 0, 0, func(c *wire.Codec) error {
		return WriteSceneInfo(c, info)
	})
}

func (w *Writer) WriteSceneTreeNode(n SceneTreeNode) error {
	return w.bw.WriteBlock(byte(TypeSceneTree), 0, 0, func(c *wire.Codec) error {
		return WriteSceneTreeNode(c, n)
	})
}

func (w *Writer) WriteTreeNode(p TreeNodeProps) error {
	return w.bw.WriteBlock(byte(TypeTreeNode), 0, 0, func(c *wire.Codec) error {
		return WriteTreeNode(c, p)
	})
}

// WriteSceneItem writes a scene item block. minVersion/currentVersion
// select the point encoding for Line items (§6 Block version
// discipline: "Writers emit v2 by default; callers may request v1").
func (w *Writer) WriteSceneItem(block SceneItemBlock, minVersion, currentVersion uint8) error {
	if block.Value != nil && block.Value.Kind == ItemValueLine && block.Value.Line != nil {
		line := *block.Value.Line
		line.Encoding = scene.PointEncodingV2
		if currentVersion == 1 {
			line.Encoding = scene.PointEncodingV1
		}
		value := *block.Value
		value.Line = &line
		block.Value = &value
	}
	return w.bw.WriteBlock(byte(block.BlockType), minVersion, currentVersion, func(c *wire.Codec) error {
		return WriteSceneItemBlock(c, block)
	})
}

func (w *Writer) WriteRootText(rt RootTextBlock) error {
	return w.bw.WriteBlock(byte(TypeRootText), 0, 0, func(c *wire.Codec) error {
		return WriteRootText(c, rt)
	})
}

package tree

import (
	"testing"

	"github.com/rm-tablet/lines/block"
	"github.com/rm-tablet/lines/scene"
)

func crdtId(author uint8, counter uint64) scene.CrdtId {
	return scene.CrdtId{Author: author, Counter: counter}
}

// S1: an empty block stream builds a tree with nothing but the root,
// and no root text.
func TestBuildEmptyDocument(t *testing.T) {
	w := block.NewWriter()
	r := block.NewReader(w.Bytes())

	tr, err := NewBuilder(nil).Build(r)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := tr.Walk()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected an empty tree, got %+v", entries)
	}
	if tr.RootText != nil {
		t.Fatalf("expected no root text, got %+v", tr.RootText)
	}
}

// S2: a single stroke, written as AuthorIds, PageInfo, SceneTree,
// TreeNode and a SceneLineItem, round-trips through the block layer
// and the builder to produce exactly one Line with the original
// values.
func TestBuildSingleStroke(t *testing.T) {
	w := block.NewWriter()

	if err := w.WriteAuthorIds(block.AuthorIds{1: "00000000-0000-0000-0000-000000000001"}); err != nil {
		t.Fatal(err)
	}
	if err := w.WritePageInfo(block.PageInfo{Loads: 1}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSceneTreeNode(block.SceneTreeNode{
		TreeId:   crdtId(0, 2),
		NodeId:   crdtId(0, 2),
		IsUpdate: false,
		ParentId: crdtId(0, 1),
	}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTreeNode(block.TreeNodeProps{
		NodeId:  crdtId(0, 2),
		Label:   block.LwwString{Value: "L1"},
		Visible: block.LwwBool{Value: true},
	}); err != nil {
		t.Fatal(err)
	}

	line := block.LineValue{
		ToolId:         uint32(scene.PenFineliner1),
		ColorId:        uint32(scene.PenColorBlue),
		ThicknessScale: 2.0,
		Points: []scene.Point{
			{X: 10, Y: 20, Speed: 100, Width: 128, Direction: 40, Pressure: 200},
			{X: 11, Y: 21, Speed: 120, Width: 130, Direction: 40, Pressure: 210},
		},
		Encoding: scene.PointEncodingV2,
	}
	if err := w.WriteSceneItem(block.SceneItemBlock{
		BlockType:     block.TypeSceneLine,
		ParentId:      crdtId(0, 2),
		ItemId:        crdtId(1, 1),
		LeftId:        crdtId(0, 0),
		RightId:       crdtId(0, 0),
		DeletedLength: 0,
		Value:         &block.ItemValue{Kind: block.ItemValueLine, Line: &line},
	}, 0, 2); err != nil {
		t.Fatal(err)
	}

	r := block.NewReader(w.Bytes())
	tr, err := NewBuilder(nil).Build(r)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := tr.Walk()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one line, got %d: %+v", len(entries), entries)
	}
	got := entries[0].Item
	if got.Kind != scene.SceneItemLine {
		t.Fatalf("expected a line item, got %+v", got)
	}
	if got.Line.Color != scene.PenColorBlue || got.Line.Tool != scene.PenFineliner1 {
		t.Fatalf("got %+v", got.Line)
	}
	if got.Line.ThicknessScale != 2.0 {
		t.Fatalf("got thickness %v", got.Line.ThicknessScale)
	}
	if len(got.Line.Points) != 2 || got.Line.Points[0].X != 10 || got.Line.Points[1].Y != 21 {
		t.Fatalf("got points %+v", got.Line.Points)
	}

	g, ok := tr.Group(crdtId(0, 2))
	if !ok || g.Label.Value != "L1" || !g.Visible.Value {
		t.Fatalf("expected group (0,2) with label L1, got %+v", g)
	}
}

func TestBuildFailsOnOrphanItem(t *testing.T) {
	w := block.NewWriter()
	if err := w.WriteSceneItem(block.SceneItemBlock{
		BlockType: block.TypeSceneLine,
		ParentId:  crdtId(0, 99),
		ItemId:    crdtId(1, 1),
		LeftId:    crdtId(0, 0),
		RightId:   crdtId(0, 0),
		Value:     &block.ItemValue{Kind: block.ItemValueLine, Line: &block.LineValue{Encoding: scene.PointEncodingV2}},
	}, 0, 2); err != nil {
		t.Fatal(err)
	}

	r := block.NewReader(w.Bytes())
	_, err := NewBuilder(nil).Build(r)
	if err == nil {
		t.Fatal("expected a ParentMissingError")
	}
	if _, ok := err.(*ParentMissingError); !ok {
		t.Fatalf("expected *ParentMissingError, got %T: %v", err, err)
	}
}

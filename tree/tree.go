package tree

import (
	"github.com/rm-tablet/lines/crdt"
	"github.com/rm-tablet/lines/scene"
)

// RootId is the fixed CrdtId of the tree's root group (§4.7: "A mapping
// from CrdtId to Group, initialised with the root group whose id is
// (0,1)").
var RootId = scene.CrdtId{Author: 0, Counter: 1}

// SceneTree is a mapping from CrdtId to Group, always containing at
// least the root group.
type SceneTree struct {
	groups map[scene.CrdtId]*scene.Group

	// parent records the nominal parent pointer a SceneTreeBlock sets
	// for each node (§4.6 SceneTree: "sets its parent edge"). It is
	// bookkeeping only: the tree's actual shape — what Walk traverses —
	// comes from each parent Group's CrdtSequence, populated by
	// AttachItem.
	parent map[scene.CrdtId]scene.CrdtId

	// RootText is set by a RootTextBlock, if the document has one.
	RootText *scene.Text
}

// New creates a SceneTree containing only the root group.
func New() *SceneTree {
	t := &SceneTree{
		groups: make(map[scene.CrdtId]*scene.Group),
		parent: make(map[scene.CrdtId]scene.CrdtId),
	}
	t.groups[RootId] = scene.NewGroup(RootId)
	return t
}

// Group returns the group registered under id, if any.
func (t *SceneTree) Group(id scene.CrdtId) (*scene.Group, bool) {
	g, ok := t.groups[id]
	return g, ok
}

// AddNode registers a group at id if one is not already present, and
// records parent as its nominal parent edge. Idempotent: calling it
// again for an id already registered leaves the existing Group (and
// its accumulated LWW state) untouched.
func (t *SceneTree) AddNode(id, parent scene.CrdtId) *scene.Group {
	g, ok := t.groups[id]
	if !ok {
		g = scene.NewGroup(id)
		t.groups[id] = g
	}
	t.parent[id] = parent
	return g
}

// AttachItem appends item under parent's CrdtSequence, identified by
// the CRDT bookkeeping (itemId, leftId, rightId, deletedLength).
// Tombstones (deletedLength > 0) carry no value. Fails with
// ParentMissingError if parent is not yet registered — per §7 this is
// fatal, unlike the reader's tolerance of unknown top-level blocks.
func (t *SceneTree) AttachItem(parent, itemId, leftId, rightId scene.CrdtId, deletedLength uint32, item scene.SceneItem) error {
	g, ok := t.groups[parent]
	if !ok {
		return &ParentMissingError{Parent: parent, Child: itemId}
	}
	value := crdt.Present(item)
	if deletedLength > 0 {
		value = crdt.Tombstone[scene.SceneItem]()
	}
	return g.Children.Insert(crdt.Item[scene.SceneItem]{
		ItemId:        itemId,
		LeftId:        leftId,
		RightId:       rightId,
		DeletedLength: deletedLength,
		Value:         value,
	})
}

// WalkEntry is one (id, item) pair yielded by Walk, with the path of
// ancestor group ids from the root down to and including the item's
// own parent group's id.
type WalkEntry struct {
	Id        scene.CrdtId
	Item      scene.SceneItem
	Ancestors []scene.CrdtId
}

// Walk traverses the tree from root in child-sequence order,
// recursing into nested groups, and returns every live (id, item) pair
// in the order they would be visited (§4.7: "recurses into groups so
// the whole scene is visited lazily" — here materialised eagerly since
// the core has no generator/coroutine primitive to stay lazy with).
func (t *SceneTree) Walk() ([]WalkEntry, error) {
	var out []WalkEntry
	if err := t.walkGroup(RootId, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *SceneTree) walkGroup(id scene.CrdtId, ancestors []scene.CrdtId, out *[]WalkEntry) error {
	g, ok := t.groups[id]
	if !ok {
		return &ParentMissingError{Parent: id, Child: id}
	}
	pairs, err := g.Children.SortedPairs()
	if err != nil {
		return err
	}
	childAncestors := append(append([]scene.CrdtId{}, ancestors...), id)
	for _, pair := range pairs {
		item, _ := pair.Value.Get()
		*out = append(*out, WalkEntry{Id: pair.Id, Item: item, Ancestors: childAncestors})
		if item.Kind == scene.SceneItemGroup {
			if err := t.walkGroup(item.Group.NodeId, childAncestors, out); err != nil {
				return err
			}
		}
	}
	return nil
}

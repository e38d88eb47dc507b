package block

import "github.com/rm-tablet/lines/wire"

// ReadSceneTreeNode reads a SceneTree block payload (§4.6): tree_id:1,
// node_id:2, bool:3 = is_update, then a sub-block at index 4 holding
// parent_id:1.
func ReadSceneTreeNode(c *wire.Codec) (SceneTreeNode, error) {
	treeId, err := c.ReadCrdtId(1)
	if err != nil {
		return SceneTreeNode{}, err
	}
	nodeId, err := c.ReadCrdtId(2)
	if err != nil {
		return SceneTreeNode{}, err
	}
	isUpdate, err := c.ReadBool(3)
	if err != nil {
		return SceneTreeNode{}, err
	}
	if err := c.BeginSubBlock(4); err != nil {
		return SceneTreeNode{}, err
	}
	parentId, err := c.ReadCrdtId(1)
	if err != nil {
		return SceneTreeNode{}, err
	}
	if err := c.EndSubBlock(); err != nil {
		return SceneTreeNode{}, err
	}
	return SceneTreeNode{TreeId: treeId, NodeId: nodeId, IsUpdate: isUpdate, ParentId: parentId}, nil
}

// WriteSceneTreeNode writes a SceneTree block payload.
func WriteSceneTreeNode(c *wire.Codec, n SceneTreeNode) error {
	c.WriteCrdtId(1, n.TreeId)
	c.WriteCrdtId(2, n.NodeId)
	c.WriteBool(3, n.IsUpdate)
	c.BeginSubBlockWrite(4)
	c.WriteCrdtId(1, n.ParentId)
	return c.EndSubBlockWrite()
}

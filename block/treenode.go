package block

import "github.com/rm-tablet/lines/wire"

// ReadTreeNode reads a TreeNode block payload (§4.6): node_id:1,
// lww_string:2 = label, lww_bool:3 = visible, and if extra bytes
// remain, the four anchor registers at indices 7-10.
func ReadTreeNode(c *wire.Codec) (TreeNodeProps, error) {
	nodeId, err := c.ReadCrdtId(1)
	if err != nil {
		return TreeNodeProps{}, err
	}
	if err := c.BeginSubBlock(2); err != nil {
		return TreeNodeProps{}, err
	}
	label, err := ReadLwwString(c)
	if err != nil {
		return TreeNodeProps{}, err
	}
	if err := c.EndSubBlock(); err != nil {
		return TreeNodeProps{}, err
	}

	if err := c.BeginSubBlock(3); err != nil {
		return TreeNodeProps{}, err
	}
	visible, err := ReadLwwBool(c)
	if err != nil {
		return TreeNodeProps{}, err
	}
	if err := c.EndSubBlock(); err != nil {
		return TreeNodeProps{}, err
	}

	props := TreeNodeProps{NodeId: nodeId, Label: label, Visible: visible}

	if c.RemainingInScope() >= 3 {
		anchor, err := readAnchorProps(c)
		if err != nil {
			return TreeNodeProps{}, err
		}
		props.Anchor = &anchor
	}
	return props, nil
}

func readAnchorProps(c *wire.Codec) (AnchorProps, error) {
	var a AnchorProps
	var err error

	if err = c.BeginSubBlock(7); err != nil {
		return a, err
	}
	if a.AnchorId, err = ReadLwwId(c); err != nil {
		return a, err
	}
	if err = c.EndSubBlock(); err != nil {
		return a, err
	}

	if err = c.BeginSubBlock(8); err != nil {
		return a, err
	}
	if a.AnchorType, err = ReadLwwU8(c); err != nil {
		return a, err
	}
	if err = c.EndSubBlock(); err != nil {
		return a, err
	}

	if err = c.BeginSubBlock(9); err != nil {
		return a, err
	}
	if a.AnchorThreshold, err = ReadLwwF32(c); err != nil {
		return a, err
	}
	if err = c.EndSubBlock(); err != nil {
		return a, err
	}

	if err = c.BeginSubBlock(10); err != nil {
		return a, err
	}
	if a.AnchorOriginX, err = ReadLwwF32(c); err != nil {
		return a, err
	}
	if err = c.EndSubBlock(); err != nil {
		return a, err
	}

	return a, nil
}

// WriteTreeNode writes a TreeNode block payload.
func WriteTreeNode(c *wire.Codec, p TreeNodeProps) error {
	c.WriteCrdtId(1, p.NodeId)

	c.BeginSubBlockWrite(2)
	WriteLwwString(c, p.Label)
	if err := c.EndSubBlockWrite(); err != nil {
		return err
	}

	c.BeginSubBlockWrite(3)
	WriteLwwBool(c, p.Visible)
	if err := c.EndSubBlockWrite(); err != nil {
		return err
	}

	if p.Anchor == nil {
		return nil
	}
	a := p.Anchor

	c.BeginSubBlockWrite(7)
	WriteLwwId(c, a.AnchorId)
	if err := c.EndSubBlockWrite(); err != nil {
		return err
	}

	c.BeginSubBlockWrite(8)
	WriteLwwU8(c, a.AnchorType)
	if err := c.EndSubBlockWrite(); err != nil {
		return err
	}

	c.BeginSubBlockWrite(9)
	WriteLwwF32(c, a.AnchorThreshold)
	if err := c.EndSubBlockWrite(); err != nil {
		return err
	}

	c.BeginSubBlockWrite(10)
	WriteLwwF32(c, a.AnchorOriginX)
	return c.EndSubBlockWrite()
}

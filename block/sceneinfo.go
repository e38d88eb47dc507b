package block

import "github.com/rm-tablet/lines/wire"

// ReadSceneInfo reads a SceneInfo block payload (§4.6): lww_id:1 =
// current_layer, then optionally in order lww_bool:2 =
// background_visible, lww_bool:3 = root_document_visible, int_pair:5 =
// paper_size (two u32s inside a sub-block).
func ReadSceneInfo(c *wire.Codec) (SceneInfo, error) {
	if err := c.BeginSubBlock(1); err != nil {
		return SceneInfo{}, err
	}
	currentLayer, err := ReadLwwId(c)
	if err != nil {
		return SceneInfo{}, err
	}
	if err := c.EndSubBlock(); err != nil {
		return SceneInfo{}, err
	}

	info := SceneInfo{CurrentLayer: currentLayer}

	if c.PeekTag(2, wire.WireSubBlock) {
		if err := c.BeginSubBlock(2); err != nil {
			return SceneInfo{}, err
		}
		v, err := ReadLwwBool(c)
		if err != nil {
			return SceneInfo{}, err
		}
		if err := c.EndSubBlock(); err != nil {
			return SceneInfo{}, err
		}
		info.BackgroundVisible = v
		info.HasBackgroundVisible = true
	}

	if c.PeekTag(3, wire.WireSubBlock) {
		if err := c.BeginSubBlock(3); err != nil {
			return SceneInfo{}, err
		}
		v, err := ReadLwwBool(c)
		if err != nil {
			return SceneInfo{}, err
		}
		if err := c.EndSubBlock(); err != nil {
			return SceneInfo{}, err
		}
		info.RootDocumentVisible = v
		info.HasRootDocVisible = true
	}

	if c.PeekTag(5, wire.WireSubBlock) {
		if err := c.BeginSubBlock(5); err != nil {
			return SceneInfo{}, err
		}
		w, err := c.BS.ReadU32()
		if err != nil {
			return SceneInfo{}, err
		}
		h, err := c.BS.ReadU32()
		if err != nil {
			return SceneInfo{}, err
		}
		if err := c.EndSubBlock(); err != nil {
			return SceneInfo{}, err
		}
		info.PaperWidth, info.PaperHeight = w, h
		info.HasPaperSize = true
	}

	return info, nil
}

// WriteSceneInfo writes a SceneInfo block payload.
func WriteSceneInfo(c *wire.Codec, info SceneInfo) error {
	c.BeginSubBlockWrite(1)
	WriteLwwId(c, info.CurrentLayer)
	if err := c.EndSubBlockWrite(); err != nil {
		return err
	}

	if info.HasBackgroundVisible {
		c.BeginSubBlockWrite(2)
		WriteLwwBool(c, info.BackgroundVisible)
		if err := c.EndSubBlockWrite(); err != nil {
			return err
		}
	}

	if info.HasRootDocVisible {
		c.BeginSubBlockWrite(3)
		WriteLwwBool(c, info.RootDocumentVisible)
		if err := c.EndSubBlockWrite(); err != nil {
			return err
		}
	}

	if info.HasPaperSize {
		c.BeginSubBlockWrite(5)
		c.BS.WriteU32(info.PaperWidth)
		c.BS.WriteU32(info.PaperHeight)
		if err := c.EndSubBlockWrite(); err != nil {
			return err
		}
	}

	return nil
}

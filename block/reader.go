package block

import (
	"errors"

	"github.com/rm-tablet/lines/scene"
	"github.com/rm-tablet/lines/wire"
)

// Decoded is the sum of everything a single top-level block decodes
// into. Exactly one field is non-nil, chosen by Type, except for
// Unreadable which carries the opaque recovery envelope on its own.
type Decoded struct {
	Type Type

	MigrationInfo  *MigrationInfo
	PageInfo       *PageInfo
	SceneTreeNode  *SceneTreeNode
	TreeNodeProps  *TreeNodeProps
	SceneInfo      *SceneInfo
	AuthorIds      AuthorIds
	SceneItem      *SceneItemBlock
	RootText       *RootTextBlock
	Unreadable     *UnreadableBlock
}

// Reader decodes a scene file's block stream one envelope at a time,
// recovering from unknown or malformed blocks per §7's two-tier error
// strategy: errors inside a block are non-fatal, captured as an
// UnreadableBlock, and reading continues from the next envelope.
type Reader struct {
	br            *wire.BlockReader
	pointEncoding scene.PointEncoding

	// OnExtraData surfaces the single per-reader "extra bytes in
	// scope" warning (§7) to the caller.
	OnExtraData func(extra []byte)
}

// NewReader creates a Reader over data (already past the 43-byte file
// header). opts configure the underlying wire.BlockReader, e.g.
// wire.WithLogger to enable the §7 extra-data warning.
func NewReader(data []byte, opts ...wire.ReaderOption) *Reader {
	br := wire.NewBlockReader(data, opts...)
	r := &Reader{br: br}
	userCallback := br.Codec.OnExtraData
	br.Codec.OnExtraData = func(extra []byte) {
		if userCallback != nil {
			userCallback(extra)
		}
		if r.OnExtraData != nil {
			r.OnExtraData(extra)
		}
	}
	return r
}

// Next decodes the next block, or returns wire.ErrEndOfStream when the
// stream is exhausted. A malformed or unrecognised block never returns
// an error from Next itself: it is surfaced as a Decoded with
// Type == the block's own type and Unreadable set.
func (r *Reader) Next() (*Decoded, error) {
	fb, err := r.br.Next()
	if err != nil {
		return nil, err
	}

	blockType := Type(fb.BlockType)
	var decoded *Decoded
	var payloadErr error
	if fb.MinVersion > r.br.ReaderVersion {
		payloadErr = errors.New("block: min version exceeds reader version")
	} else {
		decoded, payloadErr = r.readPayload(blockType, fb.CurrentVersion)
	}
	if payloadErr == nil {
		if endErr := r.br.EndBlock(); endErr != nil {
			payloadErr = endErr
		} else {
			decoded.Type = blockType
			return decoded, nil
		}
	}

	raw, skipErr := r.br.SkipBlock(fb)
	if skipErr != nil {
		return nil, skipErr
	}
	return &Decoded{
		Type: blockType,
		Unreadable: &UnreadableBlock{
			BlockType: blockType,
			Err:       payloadErr,
			Bytes:     raw,
			Offset:    fb.Offset,
		},
	}, nil
}

func (r *Reader) readPayload(t Type, currentVersion uint8) (*Decoded, error) {
	c := r.br.Codec
	switch t {
	case TypeMigrationInfo:
		v, err := ReadMigrationInfo(c)
		if err != nil {
			return nil, err
		}
		return &Decoded{MigrationInfo: &v}, nil
	case TypePageInfo:
		v, err := ReadPageInfo(c)
		if err != nil {
			return nil, err
		}
		return &Decoded{PageInfo: &v}, nil
	case TypeSceneTree:
		v, err := ReadSceneTreeNode(c)
		if err != nil {
			return nil, err
		}
		return &Decoded{SceneTreeNode: &v}, nil
	case TypeTreeNode:
		v, err := ReadTreeNode(c)
		if err != nil {
			return nil, err
		}
		return &Decoded{TreeNodeProps: &v}, nil
	case TypeSceneInfo:
		v, err := ReadSceneInfo(c)
		if err != nil {
			return nil, err
		}
		return &Decoded{SceneInfo: &v}, nil
	case TypeAuthorIds:
		v, err := ReadAuthorIds(c)
		if err != nil {
			return nil, err
		}
		return &Decoded{AuthorIds: v}, nil
	case TypeSceneGlyph, TypeSceneGroup, TypeSceneLine, TypeSceneText, TypeSceneTombstone:
		encoding := scene.PointEncodingV2
		if currentVersion == 1 {
			encoding = scene.PointEncodingV1
		}
		v, err := ReadSceneItemBlock(c, t, encoding)
		if err != nil {
			return nil, err
		}
		return &Decoded{SceneItem: &v}, nil
	case TypeRootText:
		v, err := ReadRootText(c)
		if err != nil {
			return nil, err
		}
		return &Decoded{RootText: &v}, nil
	default:
		return nil, errors.New("block: unknown block type")
	}
}

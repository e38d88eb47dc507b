package block

import "github.com/rm-tablet/lines/wire"

// CrdtId re-exports wire.CrdtId so callers of package block rarely need
// to import wire directly.
type CrdtId = wire.CrdtId

// Type is the top-level block type byte (§4.6 BlockSchema).
type Type uint8

const (
	TypeMigrationInfo Type = 0x00
	TypeSceneTree     Type = 0x01
	TypeTreeNode      Type = 0x02
	TypeSceneGlyph    Type = 0x03
	TypeSceneGroup    Type = 0x04
	TypeSceneLine     Type = 0x05
	TypeSceneText     Type = 0x06
	TypeRootText      Type = 0x07
	TypeSceneTombstone Type = 0x08
	TypeAuthorIds     Type = 0x09
	TypePageInfo      Type = 0x0A
	TypeSceneInfo     Type = 0x0D
)

func (t Type) String() string {
	switch t {
	case TypeMigrationInfo:
		return "MigrationInfo"
	case TypeSceneTree:
		return "SceneTree"
	case TypeTreeNode:
		return "TreeNode"
	case TypeSceneGlyph:
		return "SceneGlyphItem"
	case TypeSceneGroup:
		return "SceneGroupItem"
	case TypeSceneLine:
		return "SceneLineItem"
	case TypeSceneText:
		return "SceneTextItem"
	case TypeRootText:
		return "RootText"
	case TypeSceneTombstone:
		return "SceneTombstone"
	case TypeAuthorIds:
		return "AuthorIds"
	case TypePageInfo:
		return "PageInfo"
	case TypeSceneInfo:
		return "SceneInfo"
	default:
		return "Unknown"
	}
}

// MigrationInfo is block type 0x00.
type MigrationInfo struct {
	Id       CrdtId
	IsDevice bool
	// Unknown is the optional bool:3 field; the format does not name
	// its purpose, so it is carried through opaquely rather than
	// interpreted.
	Unknown    bool
	HasUnknown bool
}

// PageInfo is block type 0x0A.
type PageInfo struct {
	Loads         uint32
	Merges        uint32
	TextChars     uint32
	TextLines     uint32
	TypeFolioUse  uint32
}

// SceneTreeNode is the decoded payload of a SceneTree block (type 0x01):
// a node registration plus its parent edge.
type SceneTreeNode struct {
	TreeId   CrdtId
	NodeId   CrdtId
	IsUpdate bool
	ParentId CrdtId
}

// TreeNodeProps is the decoded payload of a TreeNode block (type 0x02):
// the four mandatory LWW registers, plus the four anchor registers if
// present.
type TreeNodeProps struct {
	NodeId  CrdtId
	Label   LwwString
	Visible LwwBool
	Anchor  *AnchorProps
}

// AnchorProps holds TreeNodeProps's optional anchor registers.
type AnchorProps struct {
	AnchorId        LwwId
	AnchorType      LwwU8
	AnchorThreshold LwwF32
	AnchorOriginX   LwwF32
}

// SceneInfo is the decoded payload of a SceneInfo block (type 0x0D).
type SceneInfo struct {
	CurrentLayer       LwwId
	HasBackgroundVisible bool
	BackgroundVisible  LwwBool
	HasRootDocVisible bool
	RootDocumentVisible LwwBool
	HasPaperSize      bool
	PaperWidth        uint32
	PaperHeight       uint32
}

// AuthorIds is the decoded payload of an AuthorIds block (type 0x09):
// author_id -> canonical UUID string.
type AuthorIds map[uint16]string

// LwwString, LwwBool, LwwU8, LwwF32, LwwId mirror scene.LwwValue but at
// the block layer, where values haven't yet been attached to scene
// entities.
type LwwString struct {
	Timestamp CrdtId
	Value     string
}

type LwwBool struct {
	Timestamp CrdtId
	Value     bool
}

type LwwU8 struct {
	Timestamp CrdtId
	Value     uint8
}

type LwwF32 struct {
	Timestamp CrdtId
	Value     float32
}

type LwwId struct {
	Timestamp CrdtId
	Value     CrdtId
}

// UnreadableBlock is the non-fatal envelope emitted for an unknown
// block type or a block whose payload grammar raised an error
// partway through (§4.6, §7): the block's whole payload, from its
// first byte, is captured opaquely and the stream continues from the
// next envelope.
type UnreadableBlock struct {
	BlockType Type
	Err       error
	Bytes     []byte
	Offset    int
}

func (u *UnreadableBlock) Error() string {
	return "unreadable block type " + u.BlockType.String() + ": " + u.Err.Error()
}

// Package scene is the domain model of a reMarkable v6 scene: the
// wire-visible enumerations (PenColor, Pen, ParagraphStyle), the CrdtId
// identity type (aliased from package wire), LWW registers, the Point
// stroke-sample type and its v1/v2 conversion, and the scene entities
// themselves (Line, Group, Text, GlyphRange, Rectangle) unified as the
// SceneItem tagged union.
//
// Nothing here performs I/O or understands the tag/block grammar — see
// package block for that. scene only models what the blocks decode
// into.
package scene

package tree

import (
	"fmt"

	"github.com/rm-tablet/lines/scene"
)

// ParentMissingError is fatal (§4.7, §7: "The SceneTree builder is
// stricter: ParentMissing is fatal because accepting an orphan child
// silently would corrupt the scene topology").
type ParentMissingError struct {
	Parent scene.CrdtId
	Child  scene.CrdtId
}

func (e *ParentMissingError) Error() string {
	return fmt.Sprintf("tree: parent %d.%d does not exist for child %d.%d",
		e.Parent.Author, e.Parent.Counter, e.Child.Author, e.Child.Counter)
}

package crdt

import (
	"sort"

	"github.com/rm-tablet/lines/wire"
)

// nodeKind distinguishes the two sentinels from real, stored items. Both
// sentinels happen to share the wire encoding CrdtId{0,0} (the
// "end-marker", spec Glossary) but must be distinct graph nodes: one is
// the source every sequence starts from, the other the sink every
// sequence ends at.
type nodeKind uint8

const (
	nodeStart nodeKind = iota
	nodeReal
	nodeEnd
)

type node struct {
	kind nodeKind
	id   wire.CrdtId
}

func realNode(id wire.CrdtId) node { return node{kind: nodeReal, id: id} }

var startNode = node{kind: nodeStart}
var endNode = node{kind: nodeEnd}

// asLeftRef maps a stored left_id reference to its graph node: the
// end-marker used as a left reference means "beginning of sequence".
func asLeftRef(id wire.CrdtId) node {
	if id.IsEndMarker() {
		return startNode
	}
	return realNode(id)
}

// asRightRef maps a stored right_id reference to its graph node: the
// end-marker used as a right reference means "end of sequence".
func asRightRef(id wire.CrdtId) node {
	if id.IsEndMarker() {
		return endNode
	}
	return realNode(id)
}

// topoSort implements the Kahn-style layered linearisation of §4.4: a
// comes_after relation over the stored items plus __start/__end,
// peeled off in layers whose ties are broken by ascending CrdtId, until
// every node has been placed. The result contains one entry per real
// item (sentinels are not part of the output).
func topoSort[T any](items map[wire.CrdtId]Item[T]) ([]wire.CrdtId, error) {
	outgoing := make(map[node][]node)
	inDegree := make(map[node]int)

	ensure := func(n node) {
		if _, ok := inDegree[n]; !ok {
			inDegree[n] = 0
		}
	}
	addEdge := func(from, to node) {
		ensure(from)
		ensure(to)
		outgoing[from] = append(outgoing[from], to)
		inDegree[to]++
	}

	ensure(startNode)
	ensure(endNode)
	for id, it := range items {
		ensure(realNode(id))
		// A neighbour reference that is not a stored item falls back to
		// the sentinel on that side.
		left, right := asLeftRef(it.LeftId), asRightRef(it.RightId)
		if _, stored := items[it.LeftId]; !stored {
			left = startNode
		}
		if _, stored := items[it.RightId]; !stored {
			right = endNode
		}
		addEdge(left, realNode(id))
		addEdge(realNode(id), right)
	}

	total := len(inDegree)
	result := make([]wire.CrdtId, 0, len(items))
	placed := 0

	frontier := nodesWithZeroInDegree(inDegree)
	for len(frontier) > 0 {
		sortFrontier(frontier)
		for _, n := range frontier {
			if n.kind == nodeReal {
				result = append(result, n.id)
			}
			placed++
			delete(inDegree, n)
		}

		var next []node
		for _, n := range frontier {
			for _, to := range outgoing[n] {
				if _, stillPending := inDegree[to]; !stillPending {
					continue
				}
				inDegree[to]--
				if inDegree[to] == 0 {
					next = append(next, to)
				}
			}
		}
		frontier = next
	}

	if placed != total {
		return nil, &CyclicOrderError{Remaining: total - placed}
	}
	return result, nil
}

func nodesWithZeroInDegree(inDegree map[node]int) []node {
	var out []node
	for n, d := range inDegree {
		if d == 0 {
			out = append(out, n)
		}
	}
	return out
}

// sortFrontier breaks ties within a layer by ascending (Author, Counter)
// so the linearisation is stable and author-aware, per §4.4.
func sortFrontier(frontier []node) {
	sort.Slice(frontier, func(i, j int) bool {
		a, b := frontier[i], frontier[j]
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		return a.id.Less(b.id)
	})
}

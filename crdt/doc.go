// Package crdt implements the ordered, concurrently-insertable sequence
// that backs every CRDT-addressed collection in a scene file: a group's
// children, a text document's character/style runs. Entries are keyed by
// CrdtId and ordered by a left/right neighbour relation rather than by
// insertion order, so two authors who insert concurrently converge on
// the same linearisation once their edits are merged (merging itself
// happens in tablet firmware, outside this package's contract — see
// spec §1).
package crdt

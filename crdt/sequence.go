package crdt

import (
	"fmt"

	"github.com/rm-tablet/lines/wire"
)

// Slot is a CRDT sequence entry's payload: either Present(value) or a
// Tombstone marking a deleted run of the given length. Using a sum type
// rather than a nullable value plus a flag keeps "value present iff
// deleted_length == 0" unforgeable, per spec §9 Design Notes.
type Slot[T any] struct {
	value   T
	present bool
}

// Present wraps a live value.
func Present[T any](v T) Slot[T] {
	return Slot[T]{value: v, present: true}
}

// Tombstone returns an absent slot.
func Tombstone[T any]() Slot[T] {
	return Slot[T]{}
}

// Get returns the wrapped value and whether it is present.
func (s Slot[T]) Get() (T, bool) {
	return s.value, s.present
}

// IsTombstone reports whether the slot carries no value.
func (s Slot[T]) IsTombstone() bool {
	return !s.present
}

// Item is one entry of a CrdtSequence: an identity, its neighbours at
// insertion time, the length of the deleted run it represents (0 for a
// live, undeleted entry), and its value.
type Item[T any] struct {
	ItemId        wire.CrdtId
	LeftId        wire.CrdtId
	RightId       wire.CrdtId
	DeletedLength uint32
	Value         Slot[T]
}

// DuplicateItemError is returned by Insert when item_id is already
// present in the sequence.
type DuplicateItemError struct {
	Id wire.CrdtId
}

func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("crdt: duplicate item id %d.%d", e.Id.Author, e.Id.Counter)
}

// CyclicOrderError is returned by the topological sort when the
// left/right relation over a sequence's items does not form a valid
// total order rooted at the start sentinel and ending at the end
// sentinel.
type CyclicOrderError struct {
	Remaining int
}

func (e *CyclicOrderError) Error() string {
	return fmt.Sprintf("crdt: cyclic or disconnected order, %d item(s) never became ready", e.Remaining)
}

// Sequence is the ordered container described in spec §4.4: unique
// CrdtId keys, values reachable only through topological linearisation
// of the left/right relation.
type Sequence[T any] struct {
	items map[wire.CrdtId]Item[T]
}

// NewSequence creates an empty Sequence.
func NewSequence[T any]() *Sequence[T] {
	return &Sequence[T]{items: make(map[wire.CrdtId]Item[T])}
}

// Len returns the number of stored items (deleted runs count as a
// single item each, same as Insert saw them).
func (s *Sequence[T]) Len() int {
	return len(s.items)
}

// Insert adds item to the sequence. It fails if item.ItemId is already
// present.
func (s *Sequence[T]) Insert(item Item[T]) error {
	if _, exists := s.items[item.ItemId]; exists {
		return &DuplicateItemError{Id: item.ItemId}
	}
	s.items[item.ItemId] = item
	return nil
}

// Lookup returns the item stored under id, if any.
func (s *Sequence[T]) Lookup(id wire.CrdtId) (Item[T], bool) {
	it, ok := s.items[id]
	return it, ok
}

// Entry pairs an id with its value in linearised order, as returned by
// SortedPairs.
type Entry[T any] struct {
	Id    wire.CrdtId
	Value Slot[T]
}

// SortedIds returns the sequence's CrdtIds in canonical linearised
// order: one id per stored item (tombstone runs are not expanded here;
// see ExpandItemDeletedRuns for that).
func (s *Sequence[T]) SortedIds() ([]wire.CrdtId, error) {
	return topoSort(s.items)
}

// SortedEntries returns (id, value) pairs in canonical order, one per
// stored item.
func (s *Sequence[T]) SortedEntries() ([]Entry[T], error) {
	ids, err := s.SortedIds()
	if err != nil {
		return nil, err
	}
	out := make([]Entry[T], 0, len(ids))
	for _, id := range ids {
		it := s.items[id]
		out = append(out, Entry[T]{Id: id, Value: it.Value})
	}
	return out, nil
}

// SortedValues returns the live (non-tombstone) values in canonical
// order.
func (s *Sequence[T]) SortedValues() ([]T, error) {
	entries, err := s.SortedEntries()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		if v, ok := e.Value.Get(); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// SortedPairs returns (id, value) pairs for live entries only, in
// canonical order.
func (s *Sequence[T]) SortedPairs() ([]Entry[T], error) {
	entries, err := s.SortedEntries()
	if err != nil {
		return nil, err
	}
	out := entries[:0:0]
	for _, e := range entries {
		if !e.Value.IsTombstone() {
			out = append(out, e)
		}
	}
	return out, nil
}

// ExpandItemDeletedRuns expands tombstone Items into one Entry per
// deleted position, and passes live items (DeletedLength == 0) through
// as a single Entry. This is a presentation-layer helper for
// per-character addressing of text content; the sequence itself
// stores one Item per CRDT insertion regardless of run length. items
// must already be in canonical order (the output of Items()).
func ExpandItemDeletedRuns[T any](items []Item[T]) []Entry[T] {
	out := make([]Entry[T], 0, len(items))
	for _, it := range items {
		if it.DeletedLength == 0 {
			out = append(out, Entry[T]{Id: it.ItemId, Value: it.Value})
			continue
		}
		for i := uint32(0); i < it.DeletedLength; i++ {
			id := wire.CrdtId{Author: it.ItemId.Author, Counter: it.ItemId.Counter + uint64(i)}
			out = append(out, Entry[T]{Id: id, Value: Tombstone[T]()})
		}
	}
	return out
}

// Items returns the sequence's items in canonical order (not expanded).
// Useful in combination with ExpandItemDeletedRuns.
func (s *Sequence[T]) Items() ([]Item[T], error) {
	ids, err := s.SortedIds()
	if err != nil {
		return nil, err
	}
	out := make([]Item[T], 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id])
	}
	return out, nil
}

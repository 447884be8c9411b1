package crdt

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"
)

// element wraps one array entry. Anchor is the id of the left neighbour at
// insertion time, uuid.Nil for the head of the list.
type element[T any] struct {
	ID        uuid.UUID `json:"id"`
	Anchor    uuid.UUID `json:"anchor"`
	Timestamp uint64    `json:"timestamp"`
	Value     T         `json:"value"`
}

// MergeableArray is a replicated growable array. Each element remembers
// the element it was inserted after; removals leave tombstones so that
// later inserts anchored on a removed element still find their place.
//
// Merged arrays are linearized by walking the anchor tree depth first from
// the head, visiting siblings newest first. Tombstones are never collected.
type MergeableArray[T any] struct {
	clock      uint64
	elements   []element[T]
	tombstones []element[T] // sorted by ID
}

// NewArray returns an array holding values in order.
func NewArray[T any](values ...T) MergeableArray[T] {
	var a MergeableArray[T]
	for _, v := range values {
		a.Append(v)
	}
	return a
}

// Count returns the number of live elements.
func (a MergeableArray[T]) Count() int { return len(a.elements) }

// At returns the value at index i.
func (a MergeableArray[T]) At(i int) T { return a.elements[i].Value }

// Values returns the live values in order.
func (a MergeableArray[T]) Values() []T {
	if len(a.elements) == 0 {
		return nil
	}
	out := make([]T, len(a.elements))
	for i, e := range a.elements {
		out[i] = e.Value
	}
	return out
}

// Append adds v at the end.
func (a *MergeableArray[T]) Append(v T) {
	a.Insert(v, len(a.elements))
}

// Insert places v at index at, shifting later elements right. It panics if
// at is out of range.
func (a *MergeableArray[T]) Insert(v T, at int) {
	if at < 0 || at > len(a.elements) {
		panic("crdt: insert index out of range")
	}
	a.clock++
	e := element[T]{ID: uuid.New(), Timestamp: a.clock, Value: v}
	if at > 0 {
		e.Anchor = a.elements[at-1].ID
	}
	a.elements = slices.Insert(slices.Clone(a.elements), at, e)
}

// Remove deletes and returns the value at index at.
func (a *MergeableArray[T]) Remove(at int) T {
	e := a.elements[at]
	a.elements = nilIfEmpty(slices.Delete(slices.Clone(a.elements), at, at+1))
	a.tombstones = addTombstone(slices.Clone(a.tombstones), e)
	return e.Value
}

// CatchUp advances the clock to at least other's.
func (a *MergeableArray[T]) CatchUp(other MergeableArray[T]) {
	a.clock = max(a.clock, other.clock)
}

func addTombstone[T any](tombstones []element[T], e element[T]) []element[T] {
	i, found := slices.BinarySearchFunc(tombstones, e.ID, func(t element[T], id uuid.UUID) int {
		return compareIDs(t.ID, id)
	})
	if found {
		return tombstones
	}
	return slices.Insert(tombstones, i, e)
}

func isTombstoned[T any](tombstones []element[T], id uuid.UUID) bool {
	_, found := slices.BinarySearchFunc(tombstones, id, func(t element[T], id uuid.UUID) int {
		return compareIDs(t.ID, id)
	})
	return found
}

// MergedWith implements ConflictFree.
func (a MergeableArray[T]) MergedWith(other MergeableArray[T]) MergeableArray[T] {
	var tombstones []element[T]
	tombstones = append(tombstones, a.tombstones...)
	for _, e := range other.tombstones {
		tombstones = addTombstone(tombstones, e)
	}

	seen := make(map[uuid.UUID]bool, len(a.elements)+len(other.elements))
	var live []element[T]
	for _, e := range slices.Concat(a.elements, other.elements) {
		if seen[e.ID] || isTombstoned(tombstones, e.ID) {
			continue
		}
		seen[e.ID] = true
		live = append(live, e)
	}

	return MergeableArray[T]{
		clock:      max(a.clock, other.clock),
		elements:   nilIfEmpty(linearize(live, tombstones)),
		tombstones: nilIfEmpty(tombstones),
	}
}

// Merged implements forked.Mergeable.
func (a MergeableArray[T]) Merged(subordinate, _ MergeableArray[T]) (MergeableArray[T], error) {
	return a.MergedWith(subordinate), nil
}

// linearize orders live elements by a preorder walk of the anchor tree.
// Tombstones take part in the tree so their descendants keep their place
// but are not emitted. Elements whose anchor is unknown hang off the head.
func linearize[T any](live, tombstones []element[T]) []element[T] {
	type node struct {
		e    element[T]
		live bool
	}
	nodes := make(map[uuid.UUID]node, len(live)+len(tombstones))
	for _, e := range tombstones {
		nodes[e.ID] = node{e: e}
	}
	for _, e := range live {
		nodes[e.ID] = node{e: e, live: true}
	}

	children := make(map[uuid.UUID][]node)
	for _, n := range nodes {
		anchor := n.e.Anchor
		if _, ok := nodes[anchor]; !ok {
			anchor = uuid.Nil
		}
		children[anchor] = append(children[anchor], n)
	}
	for _, siblings := range children {
		slices.SortFunc(siblings, func(x, y node) int {
			if x.e.Timestamp != y.e.Timestamp {
				if x.e.Timestamp > y.e.Timestamp {
					return -1
				}
				return 1
			}
			return -compareIDs(x.e.ID, y.e.ID)
		})
	}

	out := make([]element[T], 0, len(live))
	stack := slices.Clone(children[uuid.Nil])
	slices.Reverse(stack)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.live {
			out = append(out, n.e)
		}
		kids := children[n.e.ID]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

// DeduplicateByID tombstones every element that shares a logical id with a
// newer element, keeping the most recently inserted one. The relative order
// of the survivors is unchanged.
func DeduplicateByID[T any, I comparable](a MergeableArray[T], id func(T) I) MergeableArray[T] {
	newest := make(map[I]element[T], len(a.elements))
	for _, e := range a.elements {
		key := id(e.Value)
		if cur, ok := newest[key]; !ok || e.Timestamp > cur.Timestamp ||
			(e.Timestamp == cur.Timestamp && compareIDs(e.ID, cur.ID) > 0) {
			newest[key] = e
		}
	}
	if len(newest) == len(a.elements) {
		return a
	}

	out := MergeableArray[T]{clock: a.clock, tombstones: slices.Clone(a.tombstones)}
	for _, e := range a.elements {
		if newest[id(e.Value)].ID == e.ID {
			out.elements = append(out.elements, e)
			continue
		}
		out.tombstones = addTombstone(out.tombstones, e)
	}
	return out
}

type arrayJSON[T any] struct {
	Clock      uint64       `json:"clock"`
	Elements   []element[T] `json:"elements"`
	Tombstones []element[T] `json:"tombstones"`
}

func (a MergeableArray[T]) MarshalJSON() ([]byte, error) {
	w := arrayJSON[T]{Clock: a.clock, Elements: a.elements, Tombstones: a.tombstones}
	if w.Elements == nil {
		w.Elements = []element[T]{}
	}
	if w.Tombstones == nil {
		w.Tombstones = []element[T]{}
	}
	return json.Marshal(w)
}

func (a *MergeableArray[T]) UnmarshalJSON(data []byte) error {
	var w arrayJSON[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	slices.SortFunc(w.Tombstones, func(x, y element[T]) int { return compareIDs(x.ID, y.ID) })
	*a = MergeableArray[T]{
		clock:      w.Clock,
		elements:   nilIfEmpty(w.Elements),
		tombstones: nilIfEmpty(w.Tombstones),
	}
	return nil
}

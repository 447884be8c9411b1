package crdt

import (
	"cmp"
	"encoding/json"
	"maps"
	"math"
	"slices"
)

type orderedEntry struct {
	IsDeleted bool    `json:"isDeleted"`
	Timestamp uint64  `json:"timestamp"`
	Priority  float64 `json:"priority"`
}

// MergeableOrderedSet is an observed-remove set whose members keep a
// manual order. Each member carries a floating-point priority; inserting
// between two members takes the midpoint of their priorities, and
// inserting at either end halves the first or doubles the last. When the
// midpoint can no longer be represented, all live members are renumbered
// 1..n first.
//
// Merging never rewrites priorities. Concurrent inserts at the same index
// can leave members with equal priorities; they are ordered by value until
// a local edit between them renumbers the set.
type MergeableOrderedSet[T cmp.Ordered] struct {
	clock   uint64
	entries map[T]orderedEntry
}

// NewOrderedSet returns a set holding values in order. Duplicates keep
// their last position.
func NewOrderedSet[T cmp.Ordered](values ...T) MergeableOrderedSet[T] {
	var s MergeableOrderedSet[T]
	for _, v := range values {
		s.Insert(v)
	}
	return s
}

type ranked[T cmp.Ordered] struct {
	value    T
	priority float64
}

// ordered returns live members sorted by (priority, value).
func (s MergeableOrderedSet[T]) ordered() []ranked[T] {
	var out []ranked[T]
	for v, e := range s.entries {
		if !e.IsDeleted {
			out = append(out, ranked[T]{value: v, priority: e.Priority})
		}
	}
	slices.SortFunc(out, func(a, b ranked[T]) int {
		if c := cmp.Compare(a.priority, b.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.value, b.value)
	})
	return out
}

// Values returns the live members in order.
func (s MergeableOrderedSet[T]) Values() []T {
	ranks := s.ordered()
	if len(ranks) == 0 {
		return nil
	}
	out := make([]T, len(ranks))
	for i, r := range ranks {
		out[i] = r.value
	}
	return out
}

// Count returns the number of live members.
func (s MergeableOrderedSet[T]) Count() int { return len(s.ordered()) }

// Contains reports whether v is a live member.
func (s MergeableOrderedSet[T]) Contains(v T) bool {
	e, ok := s.entries[v]
	return ok && !e.IsDeleted
}

// Index returns the position of v.
func (s MergeableOrderedSet[T]) Index(v T) (int, bool) {
	if !s.Contains(v) {
		return -1, false
	}
	return slices.IndexFunc(s.ordered(), func(r ranked[T]) bool { return r.value == v }), true
}

// Insert adds v at the end. A member already present moves to the end.
func (s *MergeableOrderedSet[T]) Insert(v T) {
	n := s.Count()
	if s.Contains(v) {
		n--
	}
	s.InsertAt(v, n)
}

// InsertAt places v at index at among the other live members. Indexes past
// either end are clamped. A member already present is moved.
func (s *MergeableOrderedSet[T]) InsertAt(v T, at int) {
	p, ok := s.priorityAt(v, at)
	if !ok {
		s.renormalize()
		p, _ = s.priorityAt(v, at)
	}
	s.put(v, orderedEntry{Priority: p})
}

// Move repositions a live member and reports whether v was present.
func (s *MergeableOrderedSet[T]) Move(v T, to int) bool {
	if !s.Contains(v) {
		return false
	}
	s.InsertAt(v, to)
	return true
}

// Remove deletes v, leaving a tombstone.
func (s *MergeableOrderedSet[T]) Remove(v T) {
	e := s.entries[v]
	e.IsDeleted = true
	s.put(v, e)
}

// Renormalize renumbers the live members 1..n in their current order.
func (s *MergeableOrderedSet[T]) Renormalize() {
	s.renormalize()
}

func (s *MergeableOrderedSet[T]) put(v T, e orderedEntry) {
	s.clock++
	e.Timestamp = s.clock
	entries := maps.Clone(s.entries)
	if entries == nil {
		entries = make(map[T]orderedEntry)
	}
	entries[v] = e
	s.entries = entries
}

// priorityAt computes the priority that places v at index at among the
// other live members. ok is false when the neighbours are too close.
func (s MergeableOrderedSet[T]) priorityAt(v T, at int) (float64, bool) {
	others := slices.DeleteFunc(s.ordered(), func(r ranked[T]) bool { return r.value == v })
	at = max(0, min(at, len(others)))

	var p float64
	lo, hi := math.Inf(-1), math.Inf(1)
	switch {
	case len(others) == 0:
		return 1, true
	case at == 0:
		hi = others[0].priority
		p = hi / 2
	case at == len(others):
		lo = others[at-1].priority
		p = lo * 2
	default:
		lo, hi = others[at-1].priority, others[at].priority
		p = lo + (hi-lo)/2
	}
	if p <= lo || p >= hi || p == 0 || math.IsInf(p, 0) || math.IsNaN(p) {
		return 0, false
	}
	return p, true
}

// renormalize renumbers the live members 1..n. Every renumbered entry takes
// a new timestamp so the new order wins merges against older copies.
func (s *MergeableOrderedSet[T]) renormalize() {
	ranks := s.ordered()
	if len(ranks) == 0 {
		return
	}
	s.clock++
	entries := maps.Clone(s.entries)
	for i, r := range ranks {
		e := entries[r.value]
		e.Priority = float64(i + 1)
		e.Timestamp = s.clock
		entries[r.value] = e
	}
	s.entries = entries
}

// CatchUp advances the clock to at least other's.
func (s *MergeableOrderedSet[T]) CatchUp(other MergeableOrderedSet[T]) {
	s.clock = max(s.clock, other.clock)
}

// MergedWith implements ConflictFree.
func (s MergeableOrderedSet[T]) MergedWith(other MergeableOrderedSet[T]) MergeableOrderedSet[T] {
	return MergeableOrderedSet[T]{
		clock:   max(s.clock, other.clock),
		entries: mergeEntries(s.entries, other.entries, func(e orderedEntry) uint64 { return e.Timestamp }),
	}
}

// Merged implements forked.Mergeable.
func (s MergeableOrderedSet[T]) Merged(subordinate, _ MergeableOrderedSet[T]) (MergeableOrderedSet[T], error) {
	return s.MergedWith(subordinate), nil
}

type orderedMemberJSON[T any] struct {
	Value T `json:"value"`
	orderedEntry
}

type orderedSetJSON[T any] struct {
	Clock   uint64                 `json:"clock"`
	Entries []orderedMemberJSON[T] `json:"entries"`
}

func (s MergeableOrderedSet[T]) MarshalJSON() ([]byte, error) {
	w := orderedSetJSON[T]{Clock: s.clock, Entries: []orderedMemberJSON[T]{}}
	for v, e := range s.entries {
		w.Entries = append(w.Entries, orderedMemberJSON[T]{Value: v, orderedEntry: e})
	}
	return json.Marshal(w)
}

func (s *MergeableOrderedSet[T]) UnmarshalJSON(data []byte) error {
	var w orderedSetJSON[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := MergeableOrderedSet[T]{clock: w.Clock}
	if len(w.Entries) > 0 {
		out.entries = make(map[T]orderedEntry, len(w.Entries))
		for _, m := range w.Entries {
			out.entries[m.Value] = m.orderedEntry
		}
	}
	*s = out
	return nil
}

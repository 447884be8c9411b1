package crdt

import (
	"encoding/json"
	"maps"
)

// setEntry is the per-element metadata of an observed-remove set.
type setEntry struct {
	IsDeleted bool   `json:"isDeleted"`
	Timestamp uint64 `json:"timestamp"`
}

// MergeableSet is an observed-remove set. Every insert or remove ticks a
// single Lamport clock and overwrites the element's entry; merging keeps,
// per element, the entry with the larger timestamp.
//
// Two replicas that touch the same element at the same Lamport time keep
// the receiver's entry, so such a merge depends on argument order.
type MergeableSet[T comparable] struct {
	clock   uint64
	entries map[T]setEntry
}

// NewSet returns a set holding values.
func NewSet[T comparable](values ...T) MergeableSet[T] {
	var s MergeableSet[T]
	for _, v := range values {
		s.Insert(v)
	}
	return s
}

// Insert adds v.
func (s *MergeableSet[T]) Insert(v T) {
	s.put(v, false)
}

// Remove deletes v, leaving a tombstone.
func (s *MergeableSet[T]) Remove(v T) {
	s.put(v, true)
}

func (s *MergeableSet[T]) put(v T, deleted bool) {
	s.clock++
	entries := maps.Clone(s.entries)
	if entries == nil {
		entries = make(map[T]setEntry)
	}
	entries[v] = setEntry{IsDeleted: deleted, Timestamp: s.clock}
	s.entries = entries
}

// Contains reports whether v is a live member.
func (s MergeableSet[T]) Contains(v T) bool {
	e, ok := s.entries[v]
	return ok && !e.IsDeleted
}

// Values returns the live members in no particular order.
func (s MergeableSet[T]) Values() []T {
	var out []T
	for v, e := range s.entries {
		if !e.IsDeleted {
			out = append(out, v)
		}
	}
	return out
}

// Count returns the number of live members.
func (s MergeableSet[T]) Count() int {
	n := 0
	for _, e := range s.entries {
		if !e.IsDeleted {
			n++
		}
	}
	return n
}

// CatchUp advances the clock to at least other's, so that later mutations
// of s win against everything other has seen.
func (s *MergeableSet[T]) CatchUp(other MergeableSet[T]) {
	s.clock = max(s.clock, other.clock)
}

// MergedWith implements ConflictFree.
func (s MergeableSet[T]) MergedWith(other MergeableSet[T]) MergeableSet[T] {
	out := MergeableSet[T]{
		clock:   max(s.clock, other.clock),
		entries: mergeEntries(s.entries, other.entries, func(e setEntry) uint64 { return e.Timestamp }),
	}
	return out
}

// Merged implements forked.Mergeable.
func (s MergeableSet[T]) Merged(subordinate, _ MergeableSet[T]) (MergeableSet[T], error) {
	return s.MergedWith(subordinate), nil
}

// mergeEntries unions two entry maps, keeping the entry with the larger
// timestamp per key and a's entry on ties.
func mergeEntries[K comparable, E any](a, b map[K]E, timestamp func(E) uint64) map[K]E {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[K]E, max(len(a), len(b)))
	maps.Copy(out, a)
	for k, eb := range b {
		if ea, ok := out[k]; ok && timestamp(ea) >= timestamp(eb) {
			continue
		}
		out[k] = eb
	}
	return out
}

type setMemberJSON[T any] struct {
	Value T `json:"value"`
	setEntry
}

type setJSON[T any] struct {
	Clock   uint64             `json:"clock"`
	Entries []setMemberJSON[T] `json:"entries"`
}

func (s MergeableSet[T]) MarshalJSON() ([]byte, error) {
	w := setJSON[T]{Clock: s.clock, Entries: []setMemberJSON[T]{}}
	for v, e := range s.entries {
		w.Entries = append(w.Entries, setMemberJSON[T]{Value: v, setEntry: e})
	}
	return json.Marshal(w)
}

func (s *MergeableSet[T]) UnmarshalJSON(data []byte) error {
	var w setJSON[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := MergeableSet[T]{clock: w.Clock}
	if len(w.Entries) > 0 {
		out.entries = make(map[T]setEntry, len(w.Entries))
		for _, m := range w.Entries {
			out.entries[m.Value] = m.setEntry
		}
	}
	*s = out
	return nil
}

package crdt

import (
	"encoding/json"
	"maps"

	"github.com/javanhut/forked/internal/forked"
)

type dictEntry[V any] struct {
	Value     V      `json:"value"`
	IsDeleted bool   `json:"isDeleted"`
	Timestamp uint64 `json:"timestamp"`
}

// MergeableDictionary is an observed-remove map. Keys follow the same
// Lamport rule as MergeableSet. When V implements forked.Mergeable, the
// three-way Merged merges a value changed on both sides recursively
// instead of picking one.
type MergeableDictionary[K comparable, V any] struct {
	clock   uint64
	entries map[K]dictEntry[V]
}

// NewDictionary returns a dictionary holding the pairs of m.
func NewDictionary[K comparable, V any](m map[K]V) MergeableDictionary[K, V] {
	var d MergeableDictionary[K, V]
	for k, v := range m {
		d.Set(k, v)
	}
	return d
}

// Set stores v under k.
func (d *MergeableDictionary[K, V]) Set(k K, v V) {
	d.put(k, dictEntry[V]{Value: v})
}

// Remove deletes k, leaving a tombstone.
func (d *MergeableDictionary[K, V]) Remove(k K) {
	var zero V
	d.put(k, dictEntry[V]{Value: zero, IsDeleted: true})
}

func (d *MergeableDictionary[K, V]) put(k K, e dictEntry[V]) {
	d.clock++
	e.Timestamp = d.clock
	entries := maps.Clone(d.entries)
	if entries == nil {
		entries = make(map[K]dictEntry[V])
	}
	entries[k] = e
	d.entries = entries
}

// Get returns the live value under k.
func (d MergeableDictionary[K, V]) Get(k K) (V, bool) {
	e, ok := d.entries[k]
	if !ok || e.IsDeleted {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Keys returns the live keys in no particular order.
func (d MergeableDictionary[K, V]) Keys() []K {
	var out []K
	for k, e := range d.entries {
		if !e.IsDeleted {
			out = append(out, k)
		}
	}
	return out
}

// Count returns the number of live keys.
func (d MergeableDictionary[K, V]) Count() int {
	return len(d.Keys())
}

// Map returns the live pairs as a plain map.
func (d MergeableDictionary[K, V]) Map() map[K]V {
	out := make(map[K]V)
	for k, e := range d.entries {
		if !e.IsDeleted {
			out[k] = e.Value
		}
	}
	return out
}

// CatchUp advances the clock to at least other's.
func (d *MergeableDictionary[K, V]) CatchUp(other MergeableDictionary[K, V]) {
	d.clock = max(d.clock, other.clock)
}

// MergedWith implements ConflictFree.
func (d MergeableDictionary[K, V]) MergedWith(other MergeableDictionary[K, V]) MergeableDictionary[K, V] {
	return MergeableDictionary[K, V]{
		clock:   max(d.clock, other.clock),
		entries: mergeEntries(d.entries, other.entries, func(e dictEntry[V]) uint64 { return e.Timestamp }),
	}
}

// Merged implements forked.Mergeable. A key that both sides rewrote since
// the ancestor, and that is live on both sides and in the ancestor, is
// merged recursively when V is mergeable. Every other key takes the entry
// with the larger timestamp.
func (d MergeableDictionary[K, V]) Merged(subordinate, ancestor MergeableDictionary[K, V]) (MergeableDictionary[K, V], error) {
	out := d.MergedWith(subordinate)
	if !forked.IsMergeable[V]() {
		return out, nil
	}

	var recursed map[K]dictEntry[V]
	for k, de := range d.entries {
		se, ok := subordinate.entries[k]
		if !ok || de.IsDeleted || se.IsDeleted {
			continue
		}
		ae, ok := ancestor.entries[k]
		if !ok || ae.IsDeleted || de.Timestamp == ae.Timestamp || se.Timestamp == ae.Timestamp {
			continue
		}
		m, _ := forked.AsMergeable(de.Value)
		merged, err := m.Merged(se.Value, ae.Value)
		if err != nil {
			return MergeableDictionary[K, V]{}, err
		}
		if recursed == nil {
			recursed = make(map[K]dictEntry[V])
		}
		recursed[k] = dictEntry[V]{Value: merged, Timestamp: max(de.Timestamp, se.Timestamp)}
	}
	if recursed != nil {
		out.entries = maps.Clone(out.entries)
		maps.Copy(out.entries, recursed)
	}
	return out, nil
}

type dictMemberJSON[K, V any] struct {
	Key K `json:"key"`
	dictEntry[V]
}

type dictJSON[K, V any] struct {
	Clock   uint64                 `json:"clock"`
	Entries []dictMemberJSON[K, V] `json:"entries"`
}

func (d MergeableDictionary[K, V]) MarshalJSON() ([]byte, error) {
	w := dictJSON[K, V]{Clock: d.clock, Entries: []dictMemberJSON[K, V]{}}
	for k, e := range d.entries {
		w.Entries = append(w.Entries, dictMemberJSON[K, V]{Key: k, dictEntry: e})
	}
	return json.Marshal(w)
}

func (d *MergeableDictionary[K, V]) UnmarshalJSON(data []byte) error {
	var w dictJSON[K, V]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := MergeableDictionary[K, V]{clock: w.Clock}
	if len(w.Entries) > 0 {
		out.entries = make(map[K]dictEntry[V], len(w.Entries))
		for _, m := range w.Entries {
			out.entries[m.Key] = m.dictEntry
		}
	}
	*d = out
	return nil
}

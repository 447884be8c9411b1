package merger

import (
	"reflect"

	"github.com/javanhut/forked/internal/crdt"
)

// SetMerger merges sets held as map[T]struct{}. Additions and removals on
// either side survive; when both sides touch the same member the dominant
// side wins.
type SetMerger[T comparable] struct{}

// Merge implements Merger.
func (SetMerger[T]) Merge(dominant, subordinate, commonAncestor map[T]struct{}) (map[T]struct{}, error) {
	seed := crdt.MergeableSet[T]{}
	for v := range commonAncestor {
		seed.Insert(v)
	}

	sub := seed
	replaySet(&sub, commonAncestor, subordinate)
	dom := seed
	dom.CatchUp(sub)
	replaySet(&dom, commonAncestor, dominant)

	out := make(map[T]struct{})
	for _, v := range dom.MergedWith(sub).Values() {
		out[v] = struct{}{}
	}
	return out, nil
}

func replaySet[T comparable](s *crdt.MergeableSet[T], from, to map[T]struct{}) {
	for v := range to {
		if _, ok := from[v]; !ok {
			s.Insert(v)
		}
	}
	for v := range from {
		if _, ok := to[v]; !ok {
			s.Remove(v)
		}
	}
}

// DictionaryMerger merges maps key by key. A key changed on only one side
// takes that change. A key changed on both sides is merged recursively when
// V implements forked.Mergeable and otherwise keeps the dominant value.
type DictionaryMerger[K comparable, V any] struct{}

// Merge implements Merger.
func (DictionaryMerger[K, V]) Merge(dominant, subordinate, commonAncestor map[K]V) (map[K]V, error) {
	seed := crdt.NewDictionary(commonAncestor)

	sub := seed
	replayDictionary(&sub, commonAncestor, subordinate)
	dom := seed
	dom.CatchUp(sub)
	replayDictionary(&dom, commonAncestor, dominant)

	merged, err := dom.Merged(sub, seed)
	if err != nil {
		return nil, err
	}
	return merged.Map(), nil
}

func replayDictionary[K comparable, V any](d *crdt.MergeableDictionary[K, V], from, to map[K]V) {
	for k, v := range to {
		if old, ok := from[k]; !ok || !reflect.DeepEqual(old, v) {
			d.Set(k, v)
		}
	}
	for k := range from {
		if _, ok := to[k]; !ok {
			d.Remove(k)
		}
	}
}

package merger

import (
	"github.com/javanhut/forked/internal/crdt"
)

// ArrayMerger merges slices by value. Duplicates are allowed; an element
// inserted on both sides appears twice.
type ArrayMerger[T comparable] struct{}

// Merge implements Merger.
func (ArrayMerger[T]) Merge(dominant, subordinate, commonAncestor []T) ([]T, error) {
	merged, err := mergeSequences(dominant, subordinate, commonAncestor, identity[T])
	if err != nil {
		return nil, err
	}
	return merged.Values(), nil
}

func identity[T any](v T) T { return v }

// ArrayOfIdentifiableMerger merges slices whose elements carry an identity.
// Positions are merged by identity and each identity appears once in the
// result. An element changed on both sides is merged with its own Merged
// method when it has one; otherwise the side that differs from the
// ancestor wins, and the dominant side when both do.
type ArrayOfIdentifiableMerger[T Identifiable[I], I comparable] struct{}

// Merge implements Merger.
func (ArrayOfIdentifiableMerger[T, I]) Merge(dominant, subordinate, commonAncestor []T) ([]T, error) {
	key := func(v T) I { return v.Identity() }
	merged, err := mergeSequences(dominant, subordinate, commonAncestor, key)
	if err != nil {
		return nil, err
	}
	merged = crdt.DeduplicateByID(merged, key)

	d, s, a := indexByIdentity(dominant), indexByIdentity(subordinate), indexByIdentity(commonAncestor)
	values := merged.Values()
	for i, v := range values {
		id := v.Identity()
		out, err := mergeValue(d[id], s[id], a[id])
		if err != nil {
			return nil, err
		}
		values[i] = out
	}
	return values, nil
}

// indexByIdentity maps each identity to its first element.
func indexByIdentity[T Identifiable[I], I comparable](values []T) map[I]*T {
	out := make(map[I]*T, len(values))
	for i := range values {
		id := values[i].Identity()
		if _, ok := out[id]; !ok {
			out[id] = &values[i]
		}
	}
	return out
}

// TextMerger merges strings as sequences of runes, so concurrent edits to
// different parts of a text both survive.
type TextMerger struct{}

// Merge implements Merger.
func (TextMerger) Merge(dominant, subordinate, commonAncestor string) (string, error) {
	merged, err := ArrayMerger[rune]{}.Merge([]rune(dominant), []rune(subordinate), []rune(commonAncestor))
	if err != nil {
		return "", err
	}
	return string(merged), nil
}

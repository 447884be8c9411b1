// Package crdt provides conflict-free replicated data types that merge
// without a common ancestor.
//
// Every type here is a plain value. Mutating methods take a pointer
// receiver and copy any internal map or slice before writing, so a value
// can be copied with ordinary assignment and both copies evolved
// independently, then merged back together with MergedWith. Merging is
// commutative, associative and idempotent.
//
// Each type also implements forked.Mergeable, so it can be the content of
// a forked.Resource directly. Only MergeableDictionary looks at the
// ancestor; the others ignore it.
package crdt

import (
	"bytes"

	"github.com/google/uuid"
)

// ConflictFree is implemented by values that merge without an ancestor.
type ConflictFree[T any] interface {
	MergedWith(other T) T
}

// compareIDs orders UUIDs by their bytes.
func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// nilIfEmpty keeps empty collections in one canonical form so merged
// values compare equal to their inputs.
func nilIfEmpty[S ~[]E, E any](s S) S {
	if len(s) == 0 {
		return nil
	}
	return s
}

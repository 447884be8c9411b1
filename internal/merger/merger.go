// Package merger merges plain Go values three ways.
//
// Each merger seeds a CRDT from the common ancestor, replays the edits that
// turn the ancestor into the subordinate value, then replays the dominant
// side's edits on a copy whose clock is ahead of the subordinate replay so
// the dominant side wins ties. Merging the two copies and reading back the
// plain value gives the result.
package merger

import (
	"reflect"

	"github.com/javanhut/forked/internal/forked"
)

// Merger merges two values that diverged from commonAncestor. The call
// shape matches forked.Mergeable so a hand-written Merged method can call
// one merger per field.
type Merger[T any] interface {
	Merge(dominant, subordinate, commonAncestor T) (T, error)
}

// Identifiable is implemented by elements that keep a stable identity
// while their other fields change.
type Identifiable[I comparable] interface {
	Identity() I
}

// mergeValue merges one element that may be missing from any side.
func mergeValue[T any](d, s, a *T) (T, error) {
	switch {
	case d != nil && s != nil:
		if reflect.DeepEqual(*d, *s) {
			return *d, nil
		}
		if a != nil {
			if reflect.DeepEqual(*d, *a) {
				return *s, nil
			}
			if reflect.DeepEqual(*s, *a) {
				return *d, nil
			}
		}
		if m, ok := forked.AsMergeable(*d); ok {
			var ancestor T
			if a != nil {
				ancestor = *a
			}
			return m.Merged(*s, ancestor)
		}
		return *d, nil
	case d != nil:
		return *d, nil
	case s != nil:
		return *s, nil
	case a != nil:
		return *a, nil
	}
	var zero T
	return zero, nil
}

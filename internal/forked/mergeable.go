package forked

import "reflect"

// Mergeable is implemented by value types that know how to combine two
// divergent copies of themselves given the value they both started from.
//
// Merged is called on the dominant (most recently written) side. When no
// ancestor exists, commonAncestor is the zero value of T. The result only
// needs to be deterministic for a given triple; it does not have to be
// commutative.
type Mergeable[T any] interface {
	Merged(subordinate, commonAncestor T) (T, error)
}

// AsMergeable returns v as a Mergeable, accepting both value and pointer
// receiver implementations.
func AsMergeable[T any](v T) (Mergeable[T], bool) {
	if m, ok := any(v).(Mergeable[T]); ok {
		return m, true
	}
	if m, ok := any(&v).(Mergeable[T]); ok {
		return m, true
	}
	return nil, false
}

// IsMergeable reports whether T implements Mergeable[T].
func IsMergeable[T any]() bool {
	var zero T
	_, ok := AsMergeable(zero)
	return ok
}

// MergeOptional merges values that may be absent. If either side still
// equals the ancestor the other side wins. If only one side is present it
// wins. If both changed, the dominant side's Merged is used.
func MergeOptional[T Mergeable[T]](dominant, subordinate, commonAncestor *T) (*T, error) {
	switch {
	case dominant == nil && subordinate == nil:
		return nil, nil
	case dominant == nil:
		return subordinate, nil
	case subordinate == nil:
		return dominant, nil
	}
	if commonAncestor != nil {
		if reflect.DeepEqual(*dominant, *commonAncestor) {
			return subordinate, nil
		}
		if reflect.DeepEqual(*subordinate, *commonAncestor) {
			return dominant, nil
		}
	}
	var ancestor T
	if commonAncestor != nil {
		ancestor = *commonAncestor
	}
	merged, err := (*dominant).Merged(*subordinate, ancestor)
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

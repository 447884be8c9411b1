// Package forked implements a Git-like versioning model for a single value.
//
// A Resource owns a Repository and exposes named forks that can be updated
// independently and merged back into the reserved main fork. Each fork keeps
// at most two commits at rest: the common ancestor it shares with main and
// its own current value. That is exactly what a three-way merge needs, so
// storage and merge cost stay constant no matter how many updates happen
// between merges.
package forked

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Fork names an independently mutable checkout of a resource.
type Fork string

// Main is the reserved fork that always exists and cannot be deleted.
const Main Fork = "main"

// String returns the fork name.
func (f Fork) String() string { return string(f) }

// Version identifies a commit. Versions are totally ordered by
// (Count, Timestamp, ID), compared lexicographically.
type Version struct {
	Count     uint64    `json:"count"`
	Timestamp time.Time `json:"timestamp"`
	ID        uuid.UUID `json:"id"`
}

// InitialVersion is the version of the empty commit placed in main when a
// resource is first created.
func InitialVersion() Version {
	return Version{Count: 0, Timestamp: time.Unix(0, 0).UTC()}
}

// Next returns a version strictly greater than v.
func (v Version) Next() Version {
	return Version{
		Count:     v.Count + 1,
		Timestamp: time.Now().UTC().Round(0),
		ID:        uuid.New(),
	}
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to
// or after other.
func (v Version) Compare(other Version) int {
	switch {
	case v.Count < other.Count:
		return -1
	case v.Count > other.Count:
		return 1
	}
	if c := v.Timestamp.Compare(other.Timestamp); c != 0 {
		return c
	}
	return bytes.Compare(v.ID[:], other.ID[:])
}

// Equal reports whether v and other identify the same commit.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

func (v Version) String() string {
	return fmt.Sprintf("%d@%s", v.Count, v.Timestamp.Format(time.RFC3339Nano))
}

// Commit pairs a resource value with the version it was stored at.
// A nil Content means the resource was absent at that version.
type Commit[R any] struct {
	Content *R      `json:"content"`
	Version Version `json:"version"`
}

// Cloner is implemented by resource types that hold maps, slices or
// pointers. CloneContent uses it to copy such values deeply.
type Cloner[R any] interface {
	Clone() R
}

// CloneContent copies c so the result can be modified without touching the
// stored value. Types that implement Cloner are copied with Clone; any other
// type is copied by assignment, which shares its maps, slices and pointers,
// so such values must be treated as read-only.
func CloneContent[R any](c *R) *R {
	if c == nil {
		return nil
	}
	v := *c
	if cl, ok := any(v).(Cloner[R]); ok {
		v = cl.Clone()
	}
	return &v
}

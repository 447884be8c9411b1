package crdt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MergeableValue is a last-writer-wins register. Each Set stamps the value
// with the current time and a random id; merging keeps the value with the
// greater (timestamp, id).
type MergeableValue[T any] struct {
	value     T
	timestamp time.Time
	id        uuid.UUID
}

// NewValue returns a register holding v.
func NewValue[T any](v T) MergeableValue[T] {
	var m MergeableValue[T]
	m.Set(v)
	return m
}

// Set replaces the value.
func (m *MergeableValue[T]) Set(v T) {
	m.value = v
	m.timestamp = time.Now().UTC().Round(0)
	m.id = uuid.New()
}

// Value returns the current value.
func (m MergeableValue[T]) Value() T { return m.value }

// Timestamp returns when the value was last set.
func (m MergeableValue[T]) Timestamp() time.Time { return m.timestamp }

func (m MergeableValue[T]) newerThan(other MergeableValue[T]) bool {
	if c := m.timestamp.Compare(other.timestamp); c != 0 {
		return c > 0
	}
	return compareIDs(m.id, other.id) > 0
}

// MergedWith implements ConflictFree.
func (m MergeableValue[T]) MergedWith(other MergeableValue[T]) MergeableValue[T] {
	if other.newerThan(m) {
		return other
	}
	return m
}

// Merged implements forked.Mergeable.
func (m MergeableValue[T]) Merged(subordinate, _ MergeableValue[T]) (MergeableValue[T], error) {
	return m.MergedWith(subordinate), nil
}

type valueJSON[T any] struct {
	Value     T         `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	ID        uuid.UUID `json:"id"`
}

func (m MergeableValue[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON[T]{Value: m.value, Timestamp: m.timestamp, ID: m.id})
}

func (m *MergeableValue[T]) UnmarshalJSON(data []byte) error {
	var w valueJSON[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = MergeableValue[T]{value: w.Value, timestamp: w.Timestamp.UTC(), id: w.ID}
	return nil
}

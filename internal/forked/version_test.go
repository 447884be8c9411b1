package forked_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/javanhut/forked/internal/forked"
)

func TestVersionOrdering(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	tests := []struct {
		name string
		a, b forked.Version
		want int
	}{
		{"count wins", forked.Version{Count: 1, Timestamp: ts.Add(time.Hour)}, forked.Version{Count: 2, Timestamp: ts}, -1},
		{"timestamp breaks count tie", forked.Version{Count: 2, Timestamp: ts}, forked.Version{Count: 2, Timestamp: ts.Add(time.Second)}, -1},
		{"id breaks full tie", forked.Version{Count: 2, Timestamp: ts, ID: high}, forked.Version{Count: 2, Timestamp: ts, ID: low}, 1},
		{"equal", forked.Version{Count: 2, Timestamp: ts, ID: low}, forked.Version{Count: 2, Timestamp: ts, ID: low}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
			assert.Equal(t, tt.want == 0, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want < 0, tt.a.Less(tt.b))
		})
	}
}

func TestVersionNext(t *testing.T) {
	v := forked.InitialVersion()
	assert.Equal(t, uint64(0), v.Count)
	assert.Equal(t, time.Unix(0, 0).UTC(), v.Timestamp)

	next := v.Next()
	assert.Equal(t, uint64(1), next.Count)
	assert.True(t, v.Less(next))
	assert.NotEqual(t, uuid.Nil, next.ID)
	assert.NotEqual(t, next.ID, next.Next().ID)
}

func TestUnexpected(t *testing.T) {
	assert.NoError(t, forked.Unexpected(nil))

	known := errors.Join(errors.New("context"), forked.ErrForkNotFound)
	assert.Same(t, known, forked.Unexpected(known))

	io := errors.New("disk on fire")
	wrapped := forked.Unexpected(io)
	var ue *forked.UnexpectedError
	assert.ErrorAs(t, wrapped, &ue)
	assert.ErrorIs(t, wrapped, io)
	assert.Same(t, wrapped, forked.Unexpected(wrapped))
}

func TestOutcomeStrings(t *testing.T) {
	assert.Equal(t, "none", forked.MergeNone.String())
	assert.Equal(t, "fast-forward", forked.MergeFastForward.String())
	assert.Equal(t, "resolve-conflict", forked.MergeResolveConflict.String())
	assert.Equal(t, "left-behind-by-main", forked.LeftBehindByMain.String())
}

package forked_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javanhut/forked/internal/atomicrepo"
	"github.com/javanhut/forked/internal/forked"
)

func storeAll(t *testing.T, repo forked.Repository[string], fork forked.Fork, values ...string) []forked.Version {
	t.Helper()
	v := forked.InitialVersion()
	var versions []forked.Version
	for _, value := range values {
		v = v.Next()
		require.NoError(t, repo.Store(forked.Commit[string]{Content: ptr(value), Version: v}, fork))
		versions = append(versions, v)
	}
	return versions
}

func TestRepositoryHelpers(t *testing.T) {
	repo := atomicrepo.New[string]()
	require.NoError(t, repo.Create("f"))

	ok, err := forked.HasFork[string](repo, "f")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = forked.HasFork[string](repo, "g")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = forked.MostRecentVersionIn[string](repo, "f")
	require.NoError(t, err)
	assert.False(t, ok)

	versions := storeAll(t, repo, "f", "a", "b", "c")

	asc, err := forked.AscendingVersions[string](repo, "f")
	require.NoError(t, err)
	assert.Equal(t, versions, asc)

	latest, err := forked.MostRecentVersion[string](repo)
	require.NoError(t, err)
	assert.True(t, latest.Equal(versions[2]))

	commit, ok, err := forked.MostRecentCommit[string](repo, "f")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c", *commit.Content)

	require.NoError(t, repo.Create("g"))
	require.NoError(t, forked.CopyMostRecentCommit[string](repo, "f", "g"))
	copied, ok, err := forked.MostRecentCommit[string](repo, "g")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, commit, copied)

	require.NoError(t, repo.Create("empty"))
	err = forked.CopyMostRecentCommit[string](repo, "empty", "g")
	assert.ErrorIs(t, err, forked.ErrVersionNotFound)
}

func TestOccupationOf(t *testing.T) {
	repo := atomicrepo.New[string]()
	require.NoError(t, repo.Create(forked.Main))
	require.NoError(t, repo.Create("f"))
	storeAll(t, repo, forked.Main, "m")

	occ, err := forked.OccupationOf[string](repo, forked.Main)
	require.NoError(t, err)
	assert.Equal(t, forked.SameAsMain, occ.Kind)

	occ, err = forked.OccupationOf[string](repo, "f")
	require.NoError(t, err)
	assert.Equal(t, forked.SameAsMain, occ.Kind)

	versions := storeAll(t, repo, "f", "ancestor", "middle", "current")
	require.NoError(t, repo.RemoveCommit(versions[1], "f"))

	occ, err = forked.OccupationOf[string](repo, "f")
	require.NoError(t, err)
	assert.Equal(t, forked.AheadOrConflicting, occ.Kind)
	assert.Equal(t, "ancestor", *occ.Ancestor.Content)
	assert.Equal(t, "current", *occ.Current.Content)

	require.NoError(t, repo.RemoveCommit(versions[2], "f"))
	occ, err = forked.OccupationOf[string](repo, "f")
	require.NoError(t, err)
	assert.Equal(t, forked.LeftBehindByMain, occ.Kind)
	assert.True(t, occ.Ancestor.Version.Equal(versions[0]))
}

func TestMergeOptional(t *testing.T) {
	ancestor := &accumulator{Count: 1}

	got, err := forked.MergeOptional[accumulator](nil, nil, ancestor)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = forked.MergeOptional(nil, &accumulator{Count: 2}, ancestor)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)

	got, err = forked.MergeOptional(&accumulator{Count: 1}, &accumulator{Count: 5}, ancestor)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Count)

	got, err = forked.MergeOptional(&accumulator{Count: 3}, &accumulator{Count: 5}, ancestor)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Count)

	got, err = forked.MergeOptional(&accumulator{Count: 3}, &accumulator{Count: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Count)
}

func TestDefaultResolver(t *testing.T) {
	assert.True(t, forked.IsMergeable[accumulator]())
	assert.False(t, forked.IsMergeable[int]())
	assert.IsType(t, forked.MergeableResolver[accumulator]{}, forked.DefaultResolver[accumulator]())
	assert.IsType(t, forked.LastWriteWins[int]{}, forked.DefaultResolver[int]())

	r := forked.MergeableResolver[int]{}
	got, err := r.Resolve(forked.Commit[int]{Content: ptr(2)}, forked.Commit[int]{Content: ptr(1)}, forked.Commit[int]{})
	require.NoError(t, err)
	assert.Equal(t, 2, *got)

	got, err = r.Resolve(forked.Commit[int]{}, forked.Commit[int]{Content: ptr(1)}, forked.Commit[int]{})
	require.NoError(t, err)
	assert.Equal(t, 1, *got)
}

// Package repotest checks that a forked.Repository implementation follows
// the repository contract, and that a Resource built on it behaves.
package repotest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javanhut/forked/internal/forked"
)

// Value is the content type stored by the contract tests.
type Value struct {
	Name string   `json:"name"`
	Tags []string `json:"tags,omitempty"`
}

// Run exercises the repository returned by newRepo. Each subtest gets a
// fresh, empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) forked.Repository[Value]) {
	t.Run("forks", func(t *testing.T) { testForks(t, newRepo(t)) })
	t.Run("commits", func(t *testing.T) { testCommits(t, newRepo(t)) })
	t.Run("absent content", func(t *testing.T) { testAbsent(t, newRepo(t)) })
	t.Run("resource", func(t *testing.T) { testResource(t, newRepo(t)) })
}

func testForks(t *testing.T, repo forked.Repository[Value]) {
	forks, err := repo.Forks()
	require.NoError(t, err)
	assert.Empty(t, forks)

	require.NoError(t, repo.Create("a"))
	require.NoError(t, repo.Create("b"))
	assert.ErrorIs(t, repo.Create("a"), forked.ErrForkAlreadyExists)

	forks, err = repo.Forks()
	require.NoError(t, err)
	assert.ElementsMatch(t, []forked.Fork{"a", "b"}, forks)

	require.NoError(t, repo.Delete("a"))
	assert.ErrorIs(t, repo.Delete("a"), forked.ErrForkNotFound)
	_, err = repo.Versions("a")
	assert.ErrorIs(t, err, forked.ErrForkNotFound)

	forks, err = repo.Forks()
	require.NoError(t, err)
	assert.Equal(t, []forked.Fork{"b"}, forks)
}

func testCommits(t *testing.T, repo forked.Repository[Value]) {
	require.NoError(t, repo.Create("f"))
	v1 := forked.InitialVersion().Next()
	v2 := v1.Next()

	assert.ErrorIs(t, repo.Store(forked.Commit[Value]{Version: v1}, "missing"), forked.ErrForkNotFound)

	require.NoError(t, repo.Store(forked.Commit[Value]{Content: &Value{Name: "one", Tags: []string{"x"}}, Version: v1}, "f"))
	require.NoError(t, repo.Store(forked.Commit[Value]{Content: &Value{Name: "two"}, Version: v2}, "f"))
	assert.ErrorIs(t, repo.Store(forked.Commit[Value]{Version: v1}, "f"), forked.ErrVersionAlreadyStored)

	versions, err := forked.AscendingVersions(repo, "f")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.True(t, versions[0].Equal(v1))
	assert.True(t, versions[1].Equal(v2))

	got, err := repo.Content("f", v1)
	require.NoError(t, err)
	assert.Equal(t, &Value{Name: "one", Tags: []string{"x"}}, got)

	_, err = repo.Content("f", v2.Next())
	assert.ErrorIs(t, err, forked.ErrVersionNotFound)

	require.NoError(t, repo.RemoveCommit(v1, "f"))
	assert.ErrorIs(t, repo.RemoveCommit(v1, "f"), forked.ErrVersionNotFound)
	_, err = repo.Content("f", v1)
	assert.ErrorIs(t, err, forked.ErrVersionNotFound)

	versions, err = repo.Versions("f")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.True(t, versions[0].Equal(v2))
}

func testAbsent(t *testing.T, repo forked.Repository[Value]) {
	require.NoError(t, repo.Create("f"))
	v := forked.InitialVersion()
	require.NoError(t, repo.Store(forked.Commit[Value]{Version: v}, "f"))

	got, err := repo.Content("f", v)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testResource(t *testing.T, repo forked.Repository[Value]) {
	res, err := forked.New(repo)
	require.NoError(t, err)
	require.NoError(t, res.Create("fork"))

	_, err = res.Update(forked.Main, &Value{Name: "base"})
	require.NoError(t, err)
	_, err = res.Update("fork", &Value{Name: "fork"})
	require.NoError(t, err)
	_, err = res.Update(forked.Main, &Value{Name: "main"})
	require.NoError(t, err)

	outcome, err := res.MergeIntoMain("fork", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeResolveConflict, outcome)

	require.NoError(t, res.SyncAllForks(nil))

	mainValue, ok, err := res.Resource(forked.Main)
	require.NoError(t, err)
	require.True(t, ok)
	forkValue, _, err := res.Resource("fork")
	require.NoError(t, err)
	assert.Equal(t, mainValue, forkValue)

	// a second resource over the same repository sees the same state
	reopened, err := forked.New(repo)
	require.NoError(t, err)
	assert.True(t, reopened.LatestVersion().Equal(res.LatestVersion()))
}

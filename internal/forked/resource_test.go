package forked_test

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javanhut/forked/internal/atomicrepo"
	"github.com/javanhut/forked/internal/forked"
)

// accumulator adds up concurrent increments when merged.
type accumulator struct {
	Count int
}

func (a accumulator) Merged(subordinate, ancestor accumulator) (accumulator, error) {
	return accumulator{Count: a.Count + subordinate.Count - ancestor.Count}, nil
}

// profile merges field by field: a field changed on one side only keeps
// that change, a field changed on both keeps the dominant side.
type profile struct {
	Name string
	Age  int
}

func (p profile) Merged(subordinate, ancestor profile) (profile, error) {
	out := p
	if p.Name == ancestor.Name {
		out.Name = subordinate.Name
	}
	if p.Age == ancestor.Age {
		out.Age = subordinate.Age
	}
	return out, nil
}

type failing struct{ N int }

var errMergeFailed = errors.New("merge failed")

func (failing) Merged(_, _ failing) (failing, error) { return failing{}, errMergeFailed }

func newResource[R any](t *testing.T, opts ...forked.Option) (*forked.Resource[R], *atomicrepo.Repository[R]) {
	t.Helper()
	repo := atomicrepo.New[R]()
	res, err := forked.New[R](repo, opts...)
	require.NoError(t, err)
	return res, repo
}

func ptr[T any](v T) *T { return &v }

func TestNewCreatesMain(t *testing.T) {
	res, repo := newResource[int](t)

	forks, err := res.Forks()
	require.NoError(t, err)
	assert.Equal(t, []forked.Fork{forked.Main}, forks)
	assert.Equal(t, 1, repo.Len(forked.Main))

	content, err := res.Content(forked.Main)
	require.NoError(t, err)
	assert.Nil(t, content)

	v, err := res.MostRecentVersion(forked.Main)
	require.NoError(t, err)
	assert.True(t, v.Equal(forked.InitialVersion()))
}

func TestNewKeepsExistingRepository(t *testing.T) {
	repo := atomicrepo.New[int]()
	first, err := forked.New[int](repo)
	require.NoError(t, err)
	v, err := first.Update(forked.Main, ptr(7))
	require.NoError(t, err)

	second, err := forked.New[int](repo)
	require.NoError(t, err)
	assert.True(t, second.LatestVersion().Equal(v))
	got, ok, err := second.Resource(forked.Main)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, got)
}

func TestCreateAndDeleteForks(t *testing.T) {
	res, _ := newResource[int](t)

	require.NoError(t, res.Create("a"))
	assert.ErrorIs(t, res.Create("a"), forked.ErrForkAlreadyExists)
	assert.ErrorIs(t, res.Delete(forked.Main), forked.ErrProtectedFork)
	assert.ErrorIs(t, res.Delete("missing"), forked.ErrForkNotFound)
	require.NoError(t, res.Delete("a"))

	forks, err := res.Forks()
	require.NoError(t, err)
	assert.Equal(t, []forked.Fork{forked.Main}, forks)
}

func TestUpdateUnknownFork(t *testing.T) {
	res, _ := newResource[int](t)
	_, err := res.Update("ghost", ptr(1))
	assert.ErrorIs(t, err, forked.ErrForkNotFound)
	_, err = res.Content("ghost")
	assert.ErrorIs(t, err, forked.ErrForkNotFound)
}

func TestUpdateKeepsCommitCountInvariant(t *testing.T) {
	res, repo := newResource[int](t)
	require.NoError(t, res.Create("a"))
	require.NoError(t, res.Create("b"))

	for i := 0; i < 5; i++ {
		_, err := res.Update(forked.Main, ptr(i))
		require.NoError(t, err)
		_, err = res.Update("a", ptr(100+i))
		require.NoError(t, err)

		assert.Equal(t, 1, repo.Len(forked.Main))
		assert.LessOrEqual(t, repo.Len("a"), 2)
		assert.LessOrEqual(t, repo.Len("b"), 2)
	}
	assert.Equal(t, 2, repo.Len("a"))
	// b was empty when main first moved, so it holds main's old value as its ancestor
	assert.Equal(t, 1, repo.Len("b"))

	content, err := res.Content("b")
	require.NoError(t, err)
	assert.Nil(t, content)

	ancestor, ok, err := res.CommonAncestor("b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ancestor.Version.Equal(forked.InitialVersion()))
}

func TestUpdateVersionsIncrease(t *testing.T) {
	res, _ := newResource[int](t)
	require.NoError(t, res.Create("a"))

	prev := res.LatestVersion()
	for i, fork := range []forked.Fork{forked.Main, "a", forked.Main, "a"} {
		v, err := res.Update(fork, ptr(i))
		require.NoError(t, err)
		assert.True(t, prev.Less(v))
		assert.Equal(t, prev.Count+1, v.Count)
		prev = v
	}
}

func TestUpdateCopiesContent(t *testing.T) {
	res, _ := newResource[profile](t)
	p := &profile{Name: "Ada"}
	_, err := res.Update(forked.Main, p)
	require.NoError(t, err)
	p.Name = "mutated"

	got, _, err := res.Resource(forked.Main)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
}

func TestMergeFromMainFastForward(t *testing.T) {
	res, repo := newResource[int](t)
	require.NoError(t, res.Create("fork"))

	for i := 1; i <= 3; i++ {
		_, err := res.Update(forked.Main, ptr(i))
		require.NoError(t, err)
	}

	inMain, err := res.HasUnmergedCommitsInMain("fork")
	require.NoError(t, err)
	assert.True(t, inMain)

	outcome, err := res.MergeFromMain("fork", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeFastForward, outcome)

	got, ok, err := res.Resource("fork")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got)
	assert.Equal(t, 0, repo.Len("fork"))
}

func TestMergeIntoMainFastForward(t *testing.T) {
	res, repo := newResource[string](t)
	require.NoError(t, res.Create("fork"))

	_, err := res.Update("fork", ptr("X"))
	require.NoError(t, err)
	vy, err := res.Update("fork", ptr("Y"))
	require.NoError(t, err)

	forMain, err := res.HasUnmergedCommitsForMain("fork")
	require.NoError(t, err)
	assert.True(t, forMain)

	outcome, err := res.MergeIntoMain("fork", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeFastForward, outcome)

	got, _, err := res.Resource(forked.Main)
	require.NoError(t, err)
	assert.Equal(t, "Y", got)
	assert.Equal(t, 0, repo.Len("fork"))
	assert.Equal(t, 1, repo.Len(forked.Main))

	mainVersion, err := res.MostRecentVersion(forked.Main)
	require.NoError(t, err)
	assert.True(t, mainVersion.Equal(vy))

	differs, err := res.MainVersionDiffers(vy)
	require.NoError(t, err)
	assert.False(t, differs)
}

func TestMergeIntoMainSnapshotsEmptyForks(t *testing.T) {
	res, repo := newResource[int](t)
	_, err := res.Update(forked.Main, ptr(1))
	require.NoError(t, err)
	require.NoError(t, res.Create("writer"))
	require.NoError(t, res.Create("reader"))

	_, err = res.Update("writer", ptr(2))
	require.NoError(t, err)
	assert.Equal(t, 0, repo.Len("reader"))

	outcome, err := res.MergeIntoMain("writer", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeFastForward, outcome)

	// reader now remembers main's previous value as its ancestor
	assert.Equal(t, 1, repo.Len("reader"))
	got, _, err := res.Resource("reader")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	outcome, err = res.MergeFromMain("reader", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeFastForward, outcome)
	got, _, err = res.Resource("reader")
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestMergeFromMainResolvesConflict(t *testing.T) {
	res, repo := newResource[profile](t)
	p0 := profile{Name: "Ada", Age: 30}
	_, err := res.Update(forked.Main, &p0)
	require.NoError(t, err)
	require.NoError(t, res.Create("fork"))

	_, err = res.Update(forked.Main, &profile{Name: "Ada Lovelace", Age: 30})
	require.NoError(t, err)
	_, err = res.Update("fork", &profile{Name: "Ada", Age: 36})
	require.NoError(t, err)

	outcome, err := res.MergeFromMain("fork", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeResolveConflict, outcome)

	got, _, err := res.Resource("fork")
	require.NoError(t, err)
	assert.Equal(t, profile{Name: "Ada Lovelace", Age: 36}, got)

	// ancestor is now main's current commit
	assert.Equal(t, 2, repo.Len("fork"))
	ancestor, ok, err := res.CommonAncestor("fork")
	require.NoError(t, err)
	require.True(t, ok)
	mainVersion, err := res.MostRecentVersion(forked.Main)
	require.NoError(t, err)
	assert.True(t, ancestor.Version.Equal(mainVersion))

	inMain, err := res.HasUnmergedCommitsInMain("fork")
	require.NoError(t, err)
	assert.False(t, inMain)
	forMain, err := res.HasUnmergedCommitsForMain("fork")
	require.NoError(t, err)
	assert.True(t, forMain)

	outcome, err = res.MergeIntoMain("fork", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeFastForward, outcome)
	mainValue, _, err := res.Resource(forked.Main)
	require.NoError(t, err)
	assert.Equal(t, profile{Name: "Ada Lovelace", Age: 36}, mainValue)
}

func TestMergeIntoMainResolvesConflict(t *testing.T) {
	res, repo := newResource[profile](t)
	_, err := res.Update(forked.Main, &profile{Name: "Grace", Age: 40})
	require.NoError(t, err)
	require.NoError(t, res.Create("fork"))

	_, err = res.Update("fork", &profile{Name: "Grace Hopper", Age: 40})
	require.NoError(t, err)
	_, err = res.Update(forked.Main, &profile{Name: "Grace", Age: 45})
	require.NoError(t, err)

	outcome, err := res.MergeIntoMain("fork", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeResolveConflict, outcome)

	got, _, err := res.Resource(forked.Main)
	require.NoError(t, err)
	assert.Equal(t, profile{Name: "Grace Hopper", Age: 45}, got)
	assert.Equal(t, 1, repo.Len("fork"))

	forkValue, _, err := res.Resource("fork")
	require.NoError(t, err)
	assert.Equal(t, profile{Name: "Grace Hopper", Age: 40}, forkValue)

	outcome, err = res.MergeFromMain("fork", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeFastForward, outcome)
	forkValue, _, err = res.Resource("fork")
	require.NoError(t, err)
	assert.Equal(t, got, forkValue)
}

func TestMergeTwiceIsIdempotent(t *testing.T) {
	res, _ := newResource[profile](t)
	_, err := res.Update(forked.Main, &profile{Name: "a", Age: 1})
	require.NoError(t, err)
	require.NoError(t, res.Create("fork"))
	_, err = res.Update("fork", &profile{Name: "b", Age: 1})
	require.NoError(t, err)
	_, err = res.Update(forked.Main, &profile{Name: "a", Age: 2})
	require.NoError(t, err)

	for _, merge := range []func(forked.Fork, forked.Resolver[profile]) (forked.MergeOutcome, error){res.MergeIntoMain, res.MergeFromMain} {
		_, err := merge("fork", nil)
		require.NoError(t, err)
		before, _, err := res.Resource("fork")
		require.NoError(t, err)

		outcome, err := merge("fork", nil)
		require.NoError(t, err)
		assert.Equal(t, forked.MergeNone, outcome)

		after, _, err := res.Resource("fork")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	}
}

func TestMergeWithoutChangesIsNone(t *testing.T) {
	res, _ := newResource[int](t)
	require.NoError(t, res.Create("fork"))

	outcome, err := res.MergeIntoMain("fork", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeNone, outcome)
	outcome, err = res.MergeFromMain("fork", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeNone, outcome)
	outcome, err = res.MergeIntoMain(forked.Main, nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeNone, outcome)
}

func TestLastWriteWinsResolver(t *testing.T) {
	res, _ := newResource[profile](t)
	_, err := res.Update(forked.Main, &profile{Name: "a", Age: 1})
	require.NoError(t, err)
	require.NoError(t, res.Create("fork"))
	_, err = res.Update(forked.Main, &profile{Name: "main", Age: 1})
	require.NoError(t, err)
	_, err = res.Update("fork", &profile{Name: "a", Age: 9})
	require.NoError(t, err)

	outcome, err := res.MergeIntoMain("fork", forked.LastWriteWins[profile]{})
	require.NoError(t, err)
	assert.Equal(t, forked.MergeResolveConflict, outcome)

	got, _, err := res.Resource(forked.Main)
	require.NoError(t, err)
	assert.Equal(t, profile{Name: "a", Age: 9}, got)
}

func TestMergeErrorPropagates(t *testing.T) {
	res, repo := newResource[failing](t)
	_, err := res.Update(forked.Main, &failing{N: 1})
	require.NoError(t, err)
	require.NoError(t, res.Create("fork"))
	_, err = res.Update(forked.Main, &failing{N: 2})
	require.NoError(t, err)
	_, err = res.Update("fork", &failing{N: 3})
	require.NoError(t, err)

	_, err = res.MergeIntoMain("fork", nil)
	assert.ErrorIs(t, err, errMergeFailed)
	assert.Equal(t, 2, repo.Len("fork"))
}

func TestSyncAllForksAccumulates(t *testing.T) {
	res, repo := newResource[accumulator](t)
	_, err := res.Update(forked.Main, &accumulator{})
	require.NoError(t, err)
	require.NoError(t, res.Create("a"))
	require.NoError(t, res.Create("b"))

	for i := 0; i < 50; i++ {
		for _, fork := range []forked.Fork{"a", "b"} {
			cur, _, err := res.Resource(fork)
			require.NoError(t, err)
			cur.Count++
			_, err = res.Update(fork, &cur)
			require.NoError(t, err)
		}
	}

	require.NoError(t, res.SyncAllForks(nil))

	mainValue, _, err := res.Resource(forked.Main)
	require.NoError(t, err)
	assert.Equal(t, 100, mainValue.Count)

	mainVersion, err := res.MostRecentVersion(forked.Main)
	require.NoError(t, err)
	for _, fork := range []forked.Fork{"a", "b"} {
		v, err := res.MostRecentVersion(fork)
		require.NoError(t, err)
		assert.True(t, v.Equal(mainVersion), "fork %s", fork)
		got, _, err := res.Resource(fork)
		require.NoError(t, err)
		assert.Equal(t, mainValue, got)
		assert.Equal(t, 0, repo.Len(fork))
	}
}

func TestSyncAllForksConcurrentWriters(t *testing.T) {
	res, _ := newResource[accumulator](t)
	_, err := res.Update(forked.Main, &accumulator{})
	require.NoError(t, err)
	require.NoError(t, res.Create("a"))
	require.NoError(t, res.Create("b"))

	var wg sync.WaitGroup
	for _, fork := range []forked.Fork{"a", "b"} {
		wg.Add(1)
		go func(fork forked.Fork) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				err := res.PerformAtomically(func(tx *forked.Tx[accumulator]) error {
					cur, _, err := tx.Resource(fork)
					if err != nil {
						return err
					}
					cur.Count++
					_, err = tx.Update(fork, &cur)
					return err
				})
				assert.NoError(t, err)
			}
		}(fork)
	}
	wg.Wait()

	require.NoError(t, res.SyncAllForks(nil))
	got, _, err := res.Resource(forked.Main)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Count)
}

func TestMergeAllForksInto(t *testing.T) {
	res, _ := newResource[accumulator](t)
	_, err := res.Update(forked.Main, &accumulator{})
	require.NoError(t, err)
	for _, fork := range []forked.Fork{"a", "b", "c"} {
		require.NoError(t, res.Create(fork))
	}
	for _, step := range []struct {
		fork forked.Fork
		n    int
	}{{"a", 1}, {"b", 2}, {"c", 4}} {
		_, err := res.Update(step.fork, &accumulator{Count: step.n})
		require.NoError(t, err)
	}

	require.NoError(t, res.MergeAllForksInto("c", nil))

	got, _, err := res.Resource("c")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Count)

	mainValue, _, err := res.Resource(forked.Main)
	require.NoError(t, err)
	assert.Equal(t, 3, mainValue.Count)

	forMain, err := res.HasUnmergedCommitsForMain("c")
	require.NoError(t, err)
	assert.True(t, forMain)
}

func TestDeletedResourceMerges(t *testing.T) {
	res, _ := newResource[profile](t)
	_, err := res.Update(forked.Main, &profile{Name: "x"})
	require.NoError(t, err)
	require.NoError(t, res.Create("fork"))
	_, err = res.Update("fork", nil)
	require.NoError(t, err)
	_, err = res.Update(forked.Main, &profile{Name: "y"})
	require.NoError(t, err)

	outcome, err := res.MergeIntoMain("fork", nil)
	require.NoError(t, err)
	assert.Equal(t, forked.MergeResolveConflict, outcome)

	got, ok, err := res.Resource(forked.Main)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "y", got.Name)
}

func TestChangeNotifications(t *testing.T) {
	res, _ := newResource[int](t)
	require.NoError(t, res.Create("fork"))

	var first, second []forked.Change
	cancelFirst := res.Subscribe(func(c forked.Change) { first = append(first, c) })
	cancelSecond := res.Subscribe(func(c forked.Change) { second = append(second, c) })
	defer cancelSecond()

	v1, err := res.Update("fork", ptr(1))
	require.NoError(t, err)
	_, err = res.MergeIntoMain("fork", nil)
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, forked.Change{Fork: "fork", Version: v1}, first[0])
	assert.False(t, first[0].IsMerge())
	assert.Equal(t, forked.Main, first[1].Fork)
	assert.Equal(t, forked.Fork("fork"), first[1].MergingFork)
	assert.True(t, first[1].Version.Equal(v1))

	cancelFirst()
	cancelFirst()
	_, err = res.Update(forked.Main, ptr(2))
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Len(t, second, 3)
}

func TestHandlerCanCancelItself(t *testing.T) {
	res, _ := newResource[int](t)
	calls := 0
	var cancel func()
	cancel = res.Subscribe(func(forked.Change) {
		calls++
		cancel()
	})
	for i := 0; i < 3; i++ {
		_, err := res.Update(forked.Main, ptr(i))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestHandlerCanReadResource(t *testing.T) {
	res, _ := newResource[int](t)
	require.NoError(t, res.Create("fork"))

	var seen []int
	res.Subscribe(func(c forked.Change) {
		v, err := res.Content(c.Fork)
		if assert.NoError(t, err) && assert.NotNil(t, v) {
			seen = append(seen, *v)
		}
	})

	errs := make(chan error, 2)
	go func() {
		_, err := res.Update(forked.Main, ptr(1))
		errs <- err
		_, err = res.Update("fork", ptr(2))
		errs <- err
	}()
	for range 2 {
		select {
		case err := <-errs:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("update blocked while a handler read the resource")
		}
	}
	assert.Equal(t, []int{1, 2}, seen)
}

func TestHandlerCanUpdateResource(t *testing.T) {
	res, _ := newResource[int](t)
	require.NoError(t, res.Create("mirror"))

	var forks []forked.Fork
	res.Subscribe(func(c forked.Change) {
		forks = append(forks, c.Fork)
		if c.Fork != forked.Main {
			return
		}
		v, err := res.Content(forked.Main)
		if assert.NoError(t, err) {
			_, err = res.Update("mirror", ptr(*v*10))
			assert.NoError(t, err)
		}
	})

	_, err := res.Update(forked.Main, ptr(4))
	require.NoError(t, err)
	assert.Equal(t, []forked.Fork{forked.Main, "mirror"}, forks)

	got, _, err := res.Resource("mirror")
	require.NoError(t, err)
	assert.Equal(t, 40, got)
}

func TestAtomicBlockDeliversChangesAtTheEnd(t *testing.T) {
	res, _ := newResource[int](t)
	var delivered []forked.Change
	res.Subscribe(func(c forked.Change) { delivered = append(delivered, c) })

	var v1, v2 forked.Version
	err := res.PerformAtomically(func(tx *forked.Tx[int]) error {
		var err error
		if v1, err = tx.Update(forked.Main, ptr(1)); err != nil {
			return err
		}
		if v2, err = tx.Update(forked.Main, ptr(2)); err != nil {
			return err
		}
		assert.Empty(t, delivered)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []forked.Change{{Fork: forked.Main, Version: v1}, {Fork: forked.Main, Version: v2}}, delivered)
}

// roster holds a slice, so copies made without Clone would share it.
type roster struct {
	Names []string
}

func (r roster) Clone() roster {
	r.Names = slices.Clone(r.Names)
	return r
}

func TestContentIsACopy(t *testing.T) {
	res, repo := newResource[roster](t)
	require.NoError(t, res.Create("team"))

	input := &roster{Names: []string{"ann", "bob"}}
	v1, err := res.Update("team", input)
	require.NoError(t, err)
	input.Names[0] = "changed by caller"

	got, err := res.Content("team")
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bob"}, got.Names)
	got.Names[1] = "changed by reader"

	stored, err := repo.Content("team", v1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bob"}, stored.Names)

	again, _, err := res.Resource("team")
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bob"}, again.Names)
}

func TestCloneContent(t *testing.T) {
	assert.Nil(t, forked.CloneContent[roster](nil))

	src := &roster{Names: []string{"ann"}}
	cp := forked.CloneContent(src)
	cp.Names[0] = "bob"
	assert.Equal(t, "ann", src.Names[0])

	n := 7
	np := forked.CloneContent(&n)
	*np = 8
	assert.Equal(t, 7, n)
}

func TestPerformAtomically(t *testing.T) {
	res, _ := newResource[int](t)
	sentinel := errors.New("stop")

	err := res.PerformAtomically(func(tx *forked.Tx[int]) error {
		if err := tx.Create("fork"); err != nil {
			return err
		}
		if _, err := tx.Update("fork", ptr(5)); err != nil {
			return err
		}
		if _, err := tx.MergeIntoMain("fork", nil); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	got, _, err := res.Resource(forked.Main)
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	res, _ := newResource[int](t, forked.WithMetrics(forked.NewMetrics(reg)))
	require.NoError(t, res.Create("fork"))

	_, err := res.Update("fork", ptr(1))
	require.NoError(t, err)
	_, err = res.MergeIntoMain("fork", nil)
	require.NoError(t, err)
	_, err = res.MergeIntoMain("fork", nil)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "forked_merges_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	count, err = testutil.GatherAndCount(reg, "forked_updates_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

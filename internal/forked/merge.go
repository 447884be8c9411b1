package forked

import (
	"fmt"
	"time"
)

// MergeOutcome reports what a merge did.
type MergeOutcome int

const (
	// MergeNone means there was nothing to merge.
	MergeNone MergeOutcome = iota
	// MergeFastForward means only one side had changed, so it was copied.
	MergeFastForward
	// MergeResolveConflict means both sides had changed and a Resolver
	// produced the merged value.
	MergeResolveConflict
)

func (o MergeOutcome) String() string {
	switch o {
	case MergeNone:
		return "none"
	case MergeFastForward:
		return "fast-forward"
	case MergeResolveConflict:
		return "resolve-conflict"
	}
	return fmt.Sprintf("MergeOutcome(%d)", int(o))
}

// forkState is a fork's occupation plus the two flags the merge table is
// keyed on.
type forkState[R any] struct {
	occupation Occupation[R]
	main       Commit[R]
	forkAhead  bool
	mainAhead  bool
}

func (r *Resource[R]) stateLocked(fork Fork) (forkState[R], error) {
	occ, err := OccupationOf(r.repo, fork)
	if err != nil {
		return forkState[R]{}, err
	}
	main, err := r.mainCommitLocked()
	if err != nil {
		return forkState[R]{}, err
	}
	s := forkState[R]{occupation: occ, main: main}
	switch occ.Kind {
	case AheadOrConflicting:
		s.forkAhead = !occ.Current.Version.Equal(occ.Ancestor.Version)
		s.mainAhead = !main.Version.Equal(occ.Ancestor.Version)
	case LeftBehindByMain:
		s.mainAhead = !main.Version.Equal(occ.Ancestor.Version)
	}
	return s, nil
}

func (r *Resource[R]) mergeIntoMainLocked(fork Fork, resolver Resolver[R]) (outcome MergeOutcome, err error) {
	started := time.Now()
	defer func() {
		if err == nil {
			r.metrics.observeMerge("into-main", outcome, started)
		}
	}()

	if fork == Main {
		return MergeNone, nil
	}
	s, err := r.stateLocked(fork)
	if err != nil {
		return MergeNone, err
	}

	switch {
	case s.forkAhead && s.mainAhead:
		merged, err := resolve(resolver, s.main, s.occupation.Current, s.occupation.Ancestor)
		if err != nil {
			return MergeNone, err
		}
		if _, err := r.commitLocked(Main, merged, fork); err != nil {
			return MergeNone, err
		}
		// the fork's current value is now the ancestor it shares with main
		if err := r.repo.RemoveCommit(s.occupation.Ancestor.Version, fork); err != nil {
			return MergeNone, err
		}
		r.logger.Debug("merged into main", "fork", fork, "outcome", MergeResolveConflict)
		return MergeResolveConflict, nil

	case s.forkAhead:
		if err := r.snapshotMainIntoEmptyForksLocked(); err != nil {
			return MergeNone, err
		}
		current := s.occupation.Current
		if err := r.repo.Store(current, Main); err != nil {
			return MergeNone, err
		}
		if err := r.pruneLocked(Main); err != nil {
			return MergeNone, err
		}
		if err := removeAllCommits(r.repo, fork); err != nil {
			return MergeNone, err
		}
		r.logger.Debug("merged into main", "fork", fork, "outcome", MergeFastForward)
		r.notifyLocked(Change{Fork: Main, Version: current.Version, MergingFork: fork})
		return MergeFastForward, nil
	}
	return MergeNone, nil
}

func (r *Resource[R]) mergeFromMainLocked(fork Fork, resolver Resolver[R]) (outcome MergeOutcome, err error) {
	started := time.Now()
	defer func() {
		if err == nil {
			r.metrics.observeMerge("from-main", outcome, started)
		}
	}()

	if fork == Main {
		return MergeNone, nil
	}
	s, err := r.stateLocked(fork)
	if err != nil {
		return MergeNone, err
	}

	switch {
	case s.forkAhead && s.mainAhead:
		merged, err := resolve(resolver, s.main, s.occupation.Current, s.occupation.Ancestor)
		if err != nil {
			return MergeNone, err
		}
		// rebase the fork onto main's current commit, dropping the stale
		// ancestor, then commit the merged value on top
		if err := removeAllCommits(r.repo, fork); err != nil {
			return MergeNone, err
		}
		if err := r.repo.Store(s.main, fork); err != nil {
			return MergeNone, err
		}
		if _, err := r.commitLocked(fork, merged, Main); err != nil {
			return MergeNone, err
		}
		r.logger.Debug("merged from main", "fork", fork, "outcome", MergeResolveConflict)
		return MergeResolveConflict, nil

	case s.mainAhead:
		if err := removeAllCommits(r.repo, fork); err != nil {
			return MergeNone, err
		}
		r.logger.Debug("merged from main", "fork", fork, "outcome", MergeFastForward)
		r.notifyLocked(Change{Fork: fork, Version: s.main.Version, MergingFork: Main})
		return MergeFastForward, nil
	}
	return MergeNone, nil
}

func (r *Resource[R]) mergeAllForksIntoLocked(fork Fork, resolver Resolver[R]) error {
	others, err := r.otherForksLocked(fork)
	if err != nil {
		return err
	}
	for _, other := range others {
		if _, err := r.mergeIntoMainLocked(other, resolver); err != nil {
			return fmt.Errorf("merge %s into main: %w", other, err)
		}
	}
	if fork == Main {
		return nil
	}
	if _, err := r.mergeFromMainLocked(fork, resolver); err != nil {
		return fmt.Errorf("merge main into %s: %w", fork, err)
	}
	return nil
}

func (r *Resource[R]) syncAllForksLocked(resolver Resolver[R]) error {
	forks, err := r.otherForksLocked("")
	if err != nil {
		return err
	}
	for _, fork := range forks {
		if _, err := r.mergeIntoMainLocked(fork, resolver); err != nil {
			return fmt.Errorf("merge %s into main: %w", fork, err)
		}
	}
	for _, fork := range forks {
		outcome, err := r.mergeFromMainLocked(fork, resolver)
		if err != nil {
			return fmt.Errorf("merge main into %s: %w", fork, err)
		}
		if outcome == MergeResolveConflict {
			panic(fmt.Sprintf("forked: fork %s conflicted with main after merging into it", fork))
		}
	}
	return nil
}

package forked

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Resource is the merge engine for one versioned value. It owns its
// Repository exclusively; every public method holds the resource lock for
// its full duration. Use PerformAtomically to run several operations as one
// critical section.
type Resource[R any] struct {
	mu         sync.Mutex
	repo       Repository[R]
	mostRecent Version

	logger  *slog.Logger
	metrics *Metrics
	changes broadcaster
	pending []Change
}

// Option configures a Resource.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *Metrics
}

// WithLogger sets the logger used for debug output. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records updates and merges in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New wraps repo in a Resource. If repo has no main fork, one is created
// holding an empty commit at InitialVersion.
func New[R any](repo Repository[R], opts ...Option) (*Resource[R], error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	hasMain, err := HasFork(repo, Main)
	if err != nil {
		return nil, err
	}
	if !hasMain {
		if err := repo.Create(Main); err != nil {
			return nil, fmt.Errorf("create main fork: %w", err)
		}
		if err := repo.Store(Commit[R]{Version: InitialVersion()}, Main); err != nil {
			return nil, fmt.Errorf("store initial commit: %w", err)
		}
	}

	latest, err := MostRecentVersion(repo)
	if err != nil {
		return nil, err
	}

	return &Resource[R]{
		repo:       repo,
		mostRecent: latest,
		logger:     o.logger,
		metrics:    o.metrics,
	}, nil
}

// Subscribe registers handler for change notifications and returns a
// function that removes it. The changes made by one call, or by one
// PerformAtomically block, are delivered in commit order after the
// resource lock is released and before that call returns, so handlers may
// read or update the resource.
func (r *Resource[R]) Subscribe(handler func(Change)) (cancel func()) {
	return r.changes.subscribe(handler)
}

// PerformAtomically runs fn while holding the resource lock. Operations on
// tx do not lock again, so the whole block is one critical section. The
// changes it makes are delivered to subscribers when the block ends.
func (r *Resource[R]) PerformAtomically(fn func(tx *Tx[R]) error) error {
	defer r.lock()()
	return fn(&Tx[R]{r: r})
}

// Forks returns every fork, sorted by name.
func (r *Resource[R]) Forks() ([]Fork, error) {
	defer r.lock()()
	return r.forksLocked()
}

// Create adds a new fork that reads through to main until it is updated.
func (r *Resource[R]) Create(fork Fork) error {
	defer r.lock()()
	return r.createLocked(fork)
}

// Delete removes fork. Main cannot be deleted.
func (r *Resource[R]) Delete(fork Fork) error {
	defer r.lock()()
	return r.deleteLocked(fork)
}

// Update stores content as the new value of fork and returns its version.
// A nil content marks the resource absent.
func (r *Resource[R]) Update(fork Fork, content *R) (Version, error) {
	defer r.lock()()
	return r.updateLocked(fork, content)
}

// Content returns the current value of fork, reading through to main when
// the fork holds no commits of its own.
func (r *Resource[R]) Content(fork Fork) (*R, error) {
	defer r.lock()()
	return r.contentLocked(fork)
}

// Resource returns the current value of fork and whether it is present.
func (r *Resource[R]) Resource(fork Fork) (R, bool, error) {
	defer r.lock()()
	return r.resourceLocked(fork)
}

// MostRecentVersion returns the version of fork's current value.
func (r *Resource[R]) MostRecentVersion(fork Fork) (Version, error) {
	defer r.lock()()
	return r.mostRecentVersionLocked(fork)
}

// LatestVersion returns the highest version observed across all forks.
func (r *Resource[R]) LatestVersion() Version {
	defer r.lock()()
	return r.mostRecent
}

// CommonAncestor returns the commit fork shares with main. ok is false when
// the fork holds no commits.
func (r *Resource[R]) CommonAncestor(fork Fork) (Commit[R], bool, error) {
	defer r.lock()()
	return r.commonAncestorLocked(fork)
}

// HasUnmergedCommitsForMain reports whether fork has changes main lacks.
func (r *Resource[R]) HasUnmergedCommitsForMain(fork Fork) (bool, error) {
	defer r.lock()()
	s, err := r.stateLocked(fork)
	return s.forkAhead, err
}

// HasUnmergedCommitsInMain reports whether main has moved on since fork
// diverged.
func (r *Resource[R]) HasUnmergedCommitsInMain(fork Fork) (bool, error) {
	defer r.lock()()
	s, err := r.stateLocked(fork)
	return s.mainAhead, err
}

// MainVersionDiffers reports whether main's current version is not v.
func (r *Resource[R]) MainVersionDiffers(v Version) (bool, error) {
	defer r.lock()()
	return r.mainVersionDiffersLocked(v)
}

// MergeIntoMain brings fork's changes into main. A nil resolver selects
// DefaultResolver.
func (r *Resource[R]) MergeIntoMain(fork Fork, resolver Resolver[R]) (MergeOutcome, error) {
	defer r.lock()()
	return r.mergeIntoMainLocked(fork, resolver)
}

// MergeFromMain brings main's changes into fork.
func (r *Resource[R]) MergeFromMain(fork Fork, resolver Resolver[R]) (MergeOutcome, error) {
	defer r.lock()()
	return r.mergeFromMainLocked(fork, resolver)
}

// MergeAllForksInto merges every other fork into main, then main into fork.
func (r *Resource[R]) MergeAllForksInto(fork Fork, resolver Resolver[R]) error {
	defer r.lock()()
	return r.mergeAllForksIntoLocked(fork, resolver)
}

// SyncAllForks merges every fork into main and then fast-forwards every
// fork to main. Afterwards all forks share one version and value.
func (r *Resource[R]) SyncAllForks(resolver Resolver[R]) error {
	defer r.lock()()
	return r.syncAllForksLocked(resolver)
}

// lock acquires the resource lock. The returned function releases it and
// then delivers the changes queued while it was held.
func (r *Resource[R]) lock() (unlock func()) {
	r.mu.Lock()
	return func() {
		pending := r.pending
		r.pending = nil
		r.mu.Unlock()
		for _, c := range pending {
			r.changes.publish(c)
		}
	}
}

func (r *Resource[R]) notifyLocked(c Change) {
	r.pending = append(r.pending, c)
}

func (r *Resource[R]) forksLocked() ([]Fork, error) {
	forks, err := r.repo.Forks()
	if err != nil {
		return nil, err
	}
	slices.Sort(forks)
	return forks, nil
}

func (r *Resource[R]) otherForksLocked(exclude Fork) ([]Fork, error) {
	forks, err := r.forksLocked()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(forks, func(f Fork) bool { return f == Main || f == exclude }), nil
}

func (r *Resource[R]) createLocked(fork Fork) error {
	if err := r.repo.Create(fork); err != nil {
		return err
	}
	r.logger.Debug("fork created", "fork", fork)
	return nil
}

func (r *Resource[R]) deleteLocked(fork Fork) error {
	if fork == Main {
		return fmt.Errorf("%w: cannot delete %s", ErrProtectedFork, fork)
	}
	if err := r.repo.Delete(fork); err != nil {
		return err
	}
	r.logger.Debug("fork deleted", "fork", fork)
	return nil
}

func (r *Resource[R]) updateLocked(fork Fork, content *R) (Version, error) {
	v, err := r.commitLocked(fork, CloneContent(content), "")
	if err != nil {
		return Version{}, err
	}
	r.metrics.observeUpdate(fork)
	return v, nil
}

// commitLocked stores content as a new commit on fork, keeping every fork's
// ancestor intact, then prunes fork back to its resting commit count.
func (r *Resource[R]) commitLocked(fork Fork, content *R, merging Fork) (Version, error) {
	if fork == Main {
		// main is about to move, so forks reading through to it need the
		// current value pinned as their ancestor
		if err := r.snapshotMainIntoEmptyForksLocked(); err != nil {
			return Version{}, err
		}
	} else {
		versions, err := r.repo.Versions(fork)
		if err != nil {
			return Version{}, err
		}
		if len(versions) == 0 {
			if err := CopyMostRecentCommit(r.repo, Main, fork); err != nil {
				return Version{}, err
			}
		}
	}

	version := r.mostRecent.Next()
	if err := r.repo.Store(Commit[R]{Content: content, Version: version}, fork); err != nil {
		return Version{}, err
	}
	r.mostRecent = version

	if err := r.pruneLocked(fork); err != nil {
		return Version{}, err
	}

	r.logger.Debug("commit stored", "fork", fork, "version", version, "merging", merging)
	r.notifyLocked(Change{Fork: fork, Version: version, MergingFork: merging})
	return version, nil
}

func (r *Resource[R]) snapshotMainIntoEmptyForksLocked() error {
	forks, err := r.otherForksLocked("")
	if err != nil {
		return err
	}
	for _, fork := range forks {
		versions, err := r.repo.Versions(fork)
		if err != nil {
			return err
		}
		if len(versions) > 0 {
			continue
		}
		if err := CopyMostRecentCommit(r.repo, Main, fork); err != nil {
			return err
		}
	}
	return nil
}

// pruneLocked keeps only the newest commit in main and only the oldest and
// newest elsewhere.
func (r *Resource[R]) pruneLocked(fork Fork) error {
	versions, err := AscendingVersions(r.repo, fork)
	if err != nil {
		return err
	}
	var drop []Version
	switch {
	case fork == Main && len(versions) > 1:
		drop = versions[:len(versions)-1]
	case fork != Main && len(versions) > 2:
		drop = versions[1 : len(versions)-1]
	}
	for _, v := range drop {
		if err := r.repo.RemoveCommit(v, fork); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resource[R]) mainCommitLocked() (Commit[R], error) {
	commit, ok, err := MostRecentCommit(r.repo, Main)
	if err != nil {
		return Commit[R]{}, err
	}
	if !ok {
		panic("forked: main fork holds no commits")
	}
	return commit, nil
}

func (r *Resource[R]) currentCommitLocked(fork Fork) (Commit[R], error) {
	commit, ok, err := MostRecentCommit(r.repo, fork)
	if err != nil {
		return Commit[R]{}, err
	}
	if !ok {
		return r.mainCommitLocked()
	}
	return commit, nil
}

func (r *Resource[R]) contentLocked(fork Fork) (*R, error) {
	commit, err := r.currentCommitLocked(fork)
	if err != nil {
		return nil, err
	}
	return CloneContent(commit.Content), nil
}

func (r *Resource[R]) resourceLocked(fork Fork) (R, bool, error) {
	var zero R
	content, err := r.contentLocked(fork)
	if err != nil || content == nil {
		return zero, false, err
	}
	return *content, true, nil
}

func (r *Resource[R]) mostRecentVersionLocked(fork Fork) (Version, error) {
	commit, err := r.currentCommitLocked(fork)
	if err != nil {
		return Version{}, err
	}
	return commit.Version, nil
}

func (r *Resource[R]) commonAncestorLocked(fork Fork) (Commit[R], bool, error) {
	occ, err := OccupationOf(r.repo, fork)
	if err != nil || occ.Kind == SameAsMain {
		return Commit[R]{}, false, err
	}
	return occ.Ancestor, true, nil
}

func (r *Resource[R]) mainVersionDiffersLocked(v Version) (bool, error) {
	main, err := r.mainCommitLocked()
	if err != nil {
		return false, err
	}
	return !main.Version.Equal(v), nil
}

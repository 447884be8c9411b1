package forked

// Tx runs resource operations inside PerformAtomically. Its methods mirror
// those of Resource but assume the lock is already held. A Tx must not be
// used after the block returns.
type Tx[R any] struct {
	r *Resource[R]
}

func (tx *Tx[R]) Forks() ([]Fork, error) { return tx.r.forksLocked() }

func (tx *Tx[R]) Create(fork Fork) error { return tx.r.createLocked(fork) }

func (tx *Tx[R]) Delete(fork Fork) error { return tx.r.deleteLocked(fork) }

func (tx *Tx[R]) Update(fork Fork, content *R) (Version, error) {
	return tx.r.updateLocked(fork, content)
}

func (tx *Tx[R]) Content(fork Fork) (*R, error) { return tx.r.contentLocked(fork) }

func (tx *Tx[R]) Resource(fork Fork) (R, bool, error) { return tx.r.resourceLocked(fork) }

func (tx *Tx[R]) MostRecentVersion(fork Fork) (Version, error) {
	return tx.r.mostRecentVersionLocked(fork)
}

func (tx *Tx[R]) LatestVersion() Version { return tx.r.mostRecent }

func (tx *Tx[R]) CommonAncestor(fork Fork) (Commit[R], bool, error) {
	return tx.r.commonAncestorLocked(fork)
}

func (tx *Tx[R]) HasUnmergedCommitsForMain(fork Fork) (bool, error) {
	s, err := tx.r.stateLocked(fork)
	return s.forkAhead, err
}

func (tx *Tx[R]) HasUnmergedCommitsInMain(fork Fork) (bool, error) {
	s, err := tx.r.stateLocked(fork)
	return s.mainAhead, err
}

func (tx *Tx[R]) MainVersionDiffers(v Version) (bool, error) {
	return tx.r.mainVersionDiffersLocked(v)
}

func (tx *Tx[R]) MergeIntoMain(fork Fork, resolver Resolver[R]) (MergeOutcome, error) {
	return tx.r.mergeIntoMainLocked(fork, resolver)
}

func (tx *Tx[R]) MergeFromMain(fork Fork, resolver Resolver[R]) (MergeOutcome, error) {
	return tx.r.mergeFromMainLocked(fork, resolver)
}

func (tx *Tx[R]) MergeAllForksInto(fork Fork, resolver Resolver[R]) error {
	return tx.r.mergeAllForksIntoLocked(fork, resolver)
}

func (tx *Tx[R]) SyncAllForks(resolver Resolver[R]) error {
	return tx.r.syncAllForksLocked(resolver)
}

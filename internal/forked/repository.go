package forked

import (
	"errors"
	"fmt"
	"slices"
)

// Repository stores the commits of every fork of a resource.
//
// Implementations report failures with the package errors: Create fails
// with ErrForkAlreadyExists, Delete and Versions with ErrForkNotFound,
// Content and RemoveCommit with ErrVersionNotFound, and Store with
// ErrForkNotFound or ErrVersionAlreadyStored.
type Repository[R any] interface {
	// Forks returns every fork in no particular order.
	Forks() ([]Fork, error)

	// Create adds an empty fork.
	Create(fork Fork) error

	// Delete removes a fork and all its commits.
	Delete(fork Fork) error

	// Versions returns the versions stored in a fork, in no particular order.
	Versions(fork Fork) ([]Version, error)

	// Content returns the value stored at version in fork.
	Content(fork Fork, version Version) (*R, error)

	// Store adds a commit to fork.
	Store(commit Commit[R], fork Fork) error

	// RemoveCommit deletes the commit at version from fork.
	RemoveCommit(version Version, fork Fork) error
}

// HasFork reports whether repo contains fork.
func HasFork[R any](repo Repository[R], fork Fork) (bool, error) {
	forks, err := repo.Forks()
	if err != nil {
		return false, err
	}
	return slices.Contains(forks, fork), nil
}

// AscendingVersions returns the versions in fork, oldest first.
func AscendingVersions[R any](repo Repository[R], fork Fork) ([]Version, error) {
	versions, err := repo.Versions(fork)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(versions, Version.Compare)
	return versions, nil
}

// MostRecentVersionIn returns the newest version in fork. ok is false when
// the fork holds no commits.
func MostRecentVersionIn[R any](repo Repository[R], fork Fork) (v Version, ok bool, err error) {
	versions, err := repo.Versions(fork)
	if err != nil {
		return Version{}, false, err
	}
	if len(versions) == 0 {
		return Version{}, false, nil
	}
	return slices.MaxFunc(versions, Version.Compare), true, nil
}

// MostRecentVersion returns the newest version across all forks, or
// InitialVersion when the repository holds no commits.
func MostRecentVersion[R any](repo Repository[R]) (Version, error) {
	forks, err := repo.Forks()
	if err != nil {
		return Version{}, err
	}
	latest := InitialVersion()
	for _, fork := range forks {
		v, ok, err := MostRecentVersionIn(repo, fork)
		if err != nil {
			return Version{}, err
		}
		if ok && latest.Less(v) {
			latest = v
		}
	}
	return latest, nil
}

// MostRecentCommit returns the newest commit in fork. ok is false when the
// fork holds no commits.
func MostRecentCommit[R any](repo Repository[R], fork Fork) (Commit[R], bool, error) {
	v, ok, err := MostRecentVersionIn(repo, fork)
	if err != nil || !ok {
		return Commit[R]{}, false, err
	}
	content, err := repo.Content(fork, v)
	if err != nil {
		return Commit[R]{}, false, err
	}
	return Commit[R]{Content: content, Version: v}, true, nil
}

// CopyMostRecentCommit stores the newest commit of from into to.
func CopyMostRecentCommit[R any](repo Repository[R], from, to Fork) error {
	commit, ok, err := MostRecentCommit(repo, from)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: fork %s has no commits to copy", ErrVersionNotFound, from)
	}
	return repo.Store(commit, to)
}

// OccupationKind classifies how a fork relates to main.
type OccupationKind int

const (
	// SameAsMain means the fork holds no commits and reads through to main.
	SameAsMain OccupationKind = iota
	// LeftBehindByMain means the fork holds only its common ancestor; main
	// may have moved on since.
	LeftBehindByMain
	// AheadOrConflicting means the fork holds an ancestor and a newer value
	// of its own.
	AheadOrConflicting
)

func (k OccupationKind) String() string {
	switch k {
	case SameAsMain:
		return "same-as-main"
	case LeftBehindByMain:
		return "left-behind-by-main"
	case AheadOrConflicting:
		return "ahead-or-conflicting"
	}
	return fmt.Sprintf("OccupationKind(%d)", int(k))
}

// Occupation describes the commits a fork holds. Ancestor is set for
// LeftBehindByMain and AheadOrConflicting, Current only for the latter.
type Occupation[R any] struct {
	Kind     OccupationKind
	Ancestor Commit[R]
	Current  Commit[R]
}

// OccupationOf classifies fork by the number of commits it holds. Main is
// always SameAsMain.
func OccupationOf[R any](repo Repository[R], fork Fork) (Occupation[R], error) {
	versions, err := AscendingVersions(repo, fork)
	if err != nil {
		return Occupation[R]{}, err
	}
	if fork == Main || len(versions) == 0 {
		return Occupation[R]{Kind: SameAsMain}, nil
	}
	ancestor, err := loadCommit(repo, fork, versions[0])
	if err != nil {
		return Occupation[R]{}, err
	}
	if len(versions) == 1 {
		return Occupation[R]{Kind: LeftBehindByMain, Ancestor: ancestor}, nil
	}
	current, err := loadCommit(repo, fork, versions[len(versions)-1])
	if err != nil {
		return Occupation[R]{}, err
	}
	return Occupation[R]{Kind: AheadOrConflicting, Ancestor: ancestor, Current: current}, nil
}

func loadCommit[R any](repo Repository[R], fork Fork, v Version) (Commit[R], error) {
	content, err := repo.Content(fork, v)
	if err != nil {
		return Commit[R]{}, err
	}
	return Commit[R]{Content: content, Version: v}, nil
}

// removeAllCommits empties fork.
func removeAllCommits[R any](repo Repository[R], fork Fork) error {
	versions, err := repo.Versions(fork)
	if err != nil {
		return err
	}
	var errs []error
	for _, v := range versions {
		errs = append(errs, repo.RemoveCommit(v, fork))
	}
	return errors.Join(errs...)
}

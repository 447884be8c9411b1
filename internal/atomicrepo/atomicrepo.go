// Package atomicrepo provides an in-memory forked.Repository that can be
// loaded from and saved to a single JSON document as a whole.
package atomicrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/javanhut/forked/internal/forked"
)

// ModelVersion is the document format written by Save. Load refuses
// documents written by a newer format.
const ModelVersion = 1

// ErrUnsupportedModel is returned by Load for documents with a newer
// model version.
var ErrUnsupportedModel = errors.New("unsupported repository model version")

// Repository implements forked.Repository in memory with thread-safe access.
type Repository[R any] struct {
	mu      sync.RWMutex
	commits map[forked.Fork][]forked.Commit[R]
}

// New creates an empty repository.
func New[R any]() *Repository[R] {
	return &Repository[R]{
		commits: make(map[forked.Fork][]forked.Commit[R]),
	}
}

// Forks implements forked.Repository.
func (r *Repository[R]) Forks() ([]forked.Fork, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	forks := make([]forked.Fork, 0, len(r.commits))
	for fork := range r.commits {
		forks = append(forks, fork)
	}
	return forks, nil
}

// Create implements forked.Repository.
func (r *Repository[R]) Create(fork forked.Fork) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commits[fork]; exists {
		return fmt.Errorf("%w: %s", forked.ErrForkAlreadyExists, fork)
	}
	r.commits[fork] = nil
	return nil
}

// Delete implements forked.Repository.
func (r *Repository[R]) Delete(fork forked.Fork) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commits[fork]; !exists {
		return fmt.Errorf("%w: %s", forked.ErrForkNotFound, fork)
	}
	delete(r.commits, fork)
	return nil
}

// Versions implements forked.Repository.
func (r *Repository[R]) Versions(fork forked.Fork) ([]forked.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commits, exists := r.commits[fork]
	if !exists {
		return nil, fmt.Errorf("%w: %s", forked.ErrForkNotFound, fork)
	}
	versions := make([]forked.Version, len(commits))
	for i, c := range commits {
		versions[i] = c.Version
	}
	return versions, nil
}

// Content implements forked.Repository.
func (r *Repository[R]) Content(fork forked.Fork, version forked.Version) (*R, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commits, exists := r.commits[fork]
	if !exists {
		return nil, fmt.Errorf("%w: %s", forked.ErrForkNotFound, fork)
	}
	i := indexOf(commits, version)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s in %s", forked.ErrVersionNotFound, version, fork)
	}
	return forked.CloneContent(commits[i].Content), nil
}

// Store implements forked.Repository.
func (r *Repository[R]) Store(commit forked.Commit[R], fork forked.Fork) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	commits, exists := r.commits[fork]
	if !exists {
		return fmt.Errorf("%w: %s", forked.ErrForkNotFound, fork)
	}
	if indexOf(commits, commit.Version) >= 0 {
		return fmt.Errorf("%w: %s in %s", forked.ErrVersionAlreadyStored, commit.Version, fork)
	}
	// Store a copy to avoid external mutations
	commit.Content = forked.CloneContent(commit.Content)
	r.commits[fork] = append(commits, commit)
	return nil
}

// RemoveCommit implements forked.Repository.
func (r *Repository[R]) RemoveCommit(version forked.Version, fork forked.Fork) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	commits, exists := r.commits[fork]
	if !exists {
		return fmt.Errorf("%w: %s", forked.ErrForkNotFound, fork)
	}
	i := indexOf(commits, version)
	if i < 0 {
		return fmt.Errorf("%w: %s in %s", forked.ErrVersionNotFound, version, fork)
	}
	r.commits[fork] = slices.Delete(slices.Clone(commits), i, i+1)
	return nil
}

// Len returns the number of commits held by fork, or -1 if it does not exist.
func (r *Repository[R]) Len(fork forked.Fork) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commits, exists := r.commits[fork]
	if !exists {
		return -1
	}
	return len(commits)
}

// document is the on-disk JSON layout.
type document[R any] struct {
	ModelVersion int                               `json:"modelVersion"`
	Forks        map[forked.Fork][]forked.Commit[R] `json:"forks"`
}

// MarshalJSON encodes the whole repository.
func (r *Repository[R]) MarshalJSON() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	forks := make(map[forked.Fork][]forked.Commit[R], len(r.commits))
	for fork, commits := range r.commits {
		if commits == nil {
			commits = []forked.Commit[R]{}
		}
		forks[fork] = commits
	}
	return json.Marshal(document[R]{ModelVersion: ModelVersion, Forks: forks})
}

// UnmarshalJSON replaces the repository contents with a decoded document.
func (r *Repository[R]) UnmarshalJSON(data []byte) error {
	var doc document[R]
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.ModelVersion > ModelVersion {
		return fmt.Errorf("%w: %d (supported up to %d)", ErrUnsupportedModel, doc.ModelVersion, ModelVersion)
	}

	commits := make(map[forked.Fork][]forked.Commit[R], len(doc.Forks))
	for fork, cs := range doc.Forks {
		if len(cs) == 0 {
			cs = nil
		}
		commits[fork] = cs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits = commits
	return nil
}

// Load reads a repository saved with Save. A missing file yields an empty
// repository.
func Load[R any](path string) (*Repository[R], error) {
	repo := New[R]()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return repo, nil
		}
		return nil, fmt.Errorf("failed to read repository: %w", err)
	}
	if err := json.Unmarshal(data, repo); err != nil {
		return nil, fmt.Errorf("failed to decode repository: %w", err)
	}
	return repo, nil
}

// Save writes the repository to path as one JSON document. The write goes
// to a temporary file first and is renamed into place.
func (r *Repository[R]) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode repository: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write repository: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename repository file: %w", err)
	}
	return nil
}

func indexOf[R any](commits []forked.Commit[R], v forked.Version) int {
	return slices.IndexFunc(commits, func(c forked.Commit[R]) bool { return c.Version.Equal(v) })
}

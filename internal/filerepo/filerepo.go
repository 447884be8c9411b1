// Package filerepo stores a forked resource as one file per commit.
//
// Each fork is a directory under the root. A commit is stored as two
// files: <count> holds the zstd-compressed JSON content and
// <count>.metadata holds the version plus a BLAKE3 checksum of the content
// file, which is verified on every read.
package filerepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javanhut/forked/internal/forked"
)

const metadataSuffix = ".metadata"

// ErrInvalidForkName is returned by Create for names that cannot be used
// as a directory name.
var ErrInvalidForkName = errors.New("invalid fork name")

// ErrChecksumMismatch is returned when stored content does not match its
// recorded checksum.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// metadata is the JSON layout of a .metadata file.
type metadata struct {
	Count     uint64    `json:"count"`
	Timestamp time.Time `json:"timestamp"`
	ID        uuid.UUID `json:"id"`
	Absent    bool      `json:"absent,omitempty"`
	Checksum  Hash      `json:"checksum"`
}

func (m metadata) version() forked.Version {
	return forked.Version{Count: m.Count, Timestamp: m.Timestamp.UTC(), ID: m.ID}
}

// Repository implements forked.Repository on the file system.
type Repository[R any] struct {
	mu    sync.RWMutex
	root  string
	codec *codec
}

// Open returns a repository rooted at root, creating the directory if
// needed. Close releases the compressor.
func Open[R any](root string) (*Repository[R], error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}
	c, err := newCodec()
	if err != nil {
		return nil, err
	}
	return &Repository[R]{root: root, codec: c}, nil
}

// Close releases resources held by the repository.
func (r *Repository[R]) Close() error {
	r.codec.close()
	return nil
}

func (r *Repository[R]) forkDir(fork forked.Fork) string {
	return filepath.Join(r.root, string(fork))
}

func (r *Repository[R]) contentPath(fork forked.Fork, count uint64) string {
	return filepath.Join(r.forkDir(fork), strconv.FormatUint(count, 10))
}

func (r *Repository[R]) metadataPath(fork forked.Fork, count uint64) string {
	return r.contentPath(fork, count) + metadataSuffix
}

func validForkName(fork forked.Fork) bool {
	name := string(fork)
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}

// requireFork returns ErrForkNotFound unless fork's directory exists.
func (r *Repository[R]) requireFork(fork forked.Fork) error {
	if !validForkName(fork) {
		return fmt.Errorf("%w: %s", forked.ErrForkNotFound, fork)
	}
	info, err := os.Stat(r.forkDir(fork))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", forked.ErrForkNotFound, fork)
		}
		return forked.Unexpected(err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", forked.ErrForkNotFound, fork)
	}
	return nil
}

// Forks implements forked.Repository.
func (r *Repository[R]) Forks() ([]forked.Fork, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, forked.Unexpected(fmt.Errorf("failed to list forks: %w", err))
	}
	var forks []forked.Fork
	for _, e := range entries {
		if e.IsDir() && validForkName(forked.Fork(e.Name())) {
			forks = append(forks, forked.Fork(e.Name()))
		}
	}
	return forks, nil
}

// Create implements forked.Repository.
func (r *Repository[R]) Create(fork forked.Fork) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !validForkName(fork) {
		return fmt.Errorf("%w: %q", ErrInvalidForkName, fork)
	}
	if err := os.Mkdir(r.forkDir(fork), 0755); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", forked.ErrForkAlreadyExists, fork)
		}
		return forked.Unexpected(fmt.Errorf("failed to create fork: %w", err))
	}
	return nil
}

// Delete implements forked.Repository.
func (r *Repository[R]) Delete(fork forked.Fork) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireFork(fork); err != nil {
		return err
	}
	if err := os.RemoveAll(r.forkDir(fork)); err != nil {
		return forked.Unexpected(fmt.Errorf("failed to delete fork: %w", err))
	}
	return nil
}

// Versions implements forked.Repository.
func (r *Repository[R]) Versions(fork forked.Fork) ([]forked.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.requireFork(fork); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.forkDir(fork))
	if err != nil {
		return nil, forked.Unexpected(err)
	}
	var versions []forked.Version
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, metadataSuffix) {
			continue
		}
		count, err := strconv.ParseUint(strings.TrimSuffix(name, metadataSuffix), 10, 64)
		if err != nil {
			continue
		}
		meta, err := r.readMetadata(fork, count)
		if err != nil {
			return nil, err
		}
		versions = append(versions, meta.version())
	}
	return versions, nil
}

func (r *Repository[R]) readMetadata(fork forked.Fork, count uint64) (metadata, error) {
	var meta metadata
	data, err := os.ReadFile(r.metadataPath(fork, count))
	if err != nil {
		if os.IsNotExist(err) {
			return meta, fmt.Errorf("%w: count %d in %s", forked.ErrVersionNotFound, count, fork)
		}
		return meta, forked.Unexpected(err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, forked.Unexpected(fmt.Errorf("decode metadata: %w", err))
	}
	return meta, nil
}

// findLocked returns the metadata stored for version, or ErrVersionNotFound.
func (r *Repository[R]) findLocked(fork forked.Fork, version forked.Version) (metadata, error) {
	if err := r.requireFork(fork); err != nil {
		return metadata{}, err
	}
	meta, err := r.readMetadata(fork, version.Count)
	if err != nil {
		return metadata{}, err
	}
	if !meta.version().Equal(version) {
		return metadata{}, fmt.Errorf("%w: %s in %s", forked.ErrVersionNotFound, version, fork)
	}
	return meta, nil
}

// Content implements forked.Repository.
func (r *Repository[R]) Content(fork forked.Fork, version forked.Version) (*R, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, err := r.findLocked(fork, version)
	if err != nil {
		return nil, err
	}
	if meta.Absent {
		return nil, nil
	}

	data, err := os.ReadFile(r.contentPath(fork, version.Count))
	if err != nil {
		return nil, forked.Unexpected(fmt.Errorf("failed to read content: %w", err))
	}
	if computed := SumB3(data); computed != meta.Checksum {
		return nil, forked.Unexpected(fmt.Errorf("%w: %s in %s", ErrChecksumMismatch, version, fork))
	}

	content := new(R)
	if err := r.codec.decode(data, content); err != nil {
		return nil, forked.Unexpected(err)
	}
	return content, nil
}

// Store implements forked.Repository.
func (r *Repository[R]) Store(commit forked.Commit[R], fork forked.Fork) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireFork(fork); err != nil {
		return err
	}
	v := commit.Version
	if _, err := os.Stat(r.metadataPath(fork, v.Count)); err == nil {
		return fmt.Errorf("%w: %s in %s", forked.ErrVersionAlreadyStored, v, fork)
	}

	meta := metadata{Count: v.Count, Timestamp: v.Timestamp, ID: v.ID, Absent: commit.Content == nil}
	if commit.Content != nil {
		data, err := r.codec.encode(commit.Content)
		if err != nil {
			return forked.Unexpected(err)
		}
		meta.Checksum = SumB3(data)
		if err := writeFileAtomic(r.contentPath(fork, v.Count), data); err != nil {
			return forked.Unexpected(err)
		}
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return forked.Unexpected(err)
	}
	// metadata goes last so a crash never leaves a version without content
	if err := writeFileAtomic(r.metadataPath(fork, v.Count), metaBytes); err != nil {
		return forked.Unexpected(err)
	}
	return nil
}

// RemoveCommit implements forked.Repository.
func (r *Repository[R]) RemoveCommit(version forked.Version, fork forked.Fork) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.findLocked(fork, version); err != nil {
		return err
	}
	if err := os.Remove(r.metadataPath(fork, version.Count)); err != nil {
		return forked.Unexpected(err)
	}
	if err := os.Remove(r.contentPath(fork, version.Count)); err != nil && !os.IsNotExist(err) {
		return forked.Unexpected(err)
	}
	return nil
}

package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/javanhut/forked/internal/forked"
)

// Repository implements forked.Repository on a bbolt database. Every fork
// is a nested bucket under BucketForks holding one JSON commit per version
// count. bbolt serializes writers, so the repository needs no lock of its
// own.
type Repository[R any] struct {
	db *DB
}

// NewRepository returns a repository over db. The caller keeps ownership
// of db and closes it.
func NewRepository[R any](db *DB) *Repository[R] {
	return &Repository[R]{db: db}
}

func forkBucket(tx *bbolt.Tx, fork forked.Fork) (*bbolt.Bucket, error) {
	b := tx.Bucket(BucketForks).Bucket([]byte(fork))
	if b == nil {
		return nil, fmt.Errorf("%w: %s", forked.ErrForkNotFound, fork)
	}
	return b, nil
}

// view and update run fn in a transaction and wrap storage failures that
// are not repository errors.
func (r *Repository[R]) view(fn func(tx *bbolt.Tx) error) error {
	return forked.Unexpected(r.db.View(fn))
}

func (r *Repository[R]) update(fn func(tx *bbolt.Tx) error) error {
	return forked.Unexpected(r.db.Update(fn))
}

// Forks implements forked.Repository.
func (r *Repository[R]) Forks() ([]forked.Fork, error) {
	var forks []forked.Fork
	err := r.view(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketForks).ForEach(func(k, v []byte) error {
			if v == nil {
				forks = append(forks, forked.Fork(k))
			}
			return nil
		})
	})
	return forks, err
}

// Create implements forked.Repository.
func (r *Repository[R]) Create(fork forked.Fork) error {
	return r.update(func(tx *bbolt.Tx) error {
		_, err := tx.Bucket(BucketForks).CreateBucket([]byte(fork))
		if errors.Is(err, bbolt.ErrBucketExists) {
			return fmt.Errorf("%w: %s", forked.ErrForkAlreadyExists, fork)
		}
		return err
	})
}

// Delete implements forked.Repository.
func (r *Repository[R]) Delete(fork forked.Fork) error {
	return r.update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(BucketForks).DeleteBucket([]byte(fork))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("%w: %s", forked.ErrForkNotFound, fork)
		}
		return err
	})
}

// Versions implements forked.Repository.
func (r *Repository[R]) Versions(fork forked.Fork) ([]forked.Version, error) {
	var versions []forked.Version
	err := r.view(func(tx *bbolt.Tx) error {
		b, err := forkBucket(tx, fork)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			var c forked.Commit[R]
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("decode commit: %w", err)
			}
			versions = append(versions, c.Version)
			return nil
		})
	})
	return versions, err
}

func loadCommit[R any](b *bbolt.Bucket, fork forked.Fork, version forked.Version) (forked.Commit[R], error) {
	var c forked.Commit[R]
	raw := b.Get(countKey(version.Count))
	if raw == nil {
		return c, fmt.Errorf("%w: %s in %s", forked.ErrVersionNotFound, version, fork)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("decode commit: %w", err)
	}
	if !c.Version.Equal(version) {
		return c, fmt.Errorf("%w: %s in %s", forked.ErrVersionNotFound, version, fork)
	}
	return c, nil
}

// Content implements forked.Repository.
func (r *Repository[R]) Content(fork forked.Fork, version forked.Version) (*R, error) {
	var content *R
	err := r.view(func(tx *bbolt.Tx) error {
		b, err := forkBucket(tx, fork)
		if err != nil {
			return err
		}
		c, err := loadCommit[R](b, fork, version)
		content = c.Content
		return err
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// Store implements forked.Repository.
func (r *Repository[R]) Store(commit forked.Commit[R], fork forked.Fork) error {
	return r.update(func(tx *bbolt.Tx) error {
		b, err := forkBucket(tx, fork)
		if err != nil {
			return err
		}
		key := countKey(commit.Version.Count)
		if b.Get(key) != nil {
			return fmt.Errorf("%w: %s in %s", forked.ErrVersionAlreadyStored, commit.Version, fork)
		}
		data, err := json.Marshal(commit)
		if err != nil {
			return fmt.Errorf("encode commit: %w", err)
		}
		return b.Put(key, data)
	})
}

// RemoveCommit implements forked.Repository.
func (r *Repository[R]) RemoveCommit(version forked.Version, fork forked.Fork) error {
	return r.update(func(tx *bbolt.Tx) error {
		b, err := forkBucket(tx, fork)
		if err != nil {
			return err
		}
		if _, err := loadCommit[R](b, fork, version); err != nil {
			return err
		}
		return b.Delete(countKey(version.Count))
	})
}

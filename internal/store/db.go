// Package store keeps a forked resource in a bbolt database.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"
)

// ModelVersion is the layout version written to new databases. Open
// refuses databases written by a newer layout.
const ModelVersion = 1

// Buckets
var (
	BucketForks = []byte("forks") // fork name -> bucket of commits keyed by count
	BucketMeta  = []byte("meta")  // database metadata
)

var keyModelVersion = []byte("model_version")

// ErrUnsupportedModel is returned by Open for databases with a newer
// model version.
var ErrUnsupportedModel = errors.New("unsupported database model version")

type DB struct{ *bbolt.DB }

func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0666, nil)
	if err != nil {
		return nil, err
	}
	// Ensure buckets exist and the layout is one we understand
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, e := tx.CreateBucketIfNotExists(BucketForks); e != nil {
			return e
		}
		meta, e := tx.CreateBucketIfNotExists(BucketMeta)
		if e != nil {
			return e
		}
		return checkModelVersion(meta)
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func (db *DB) Close() error { return db.DB.Close() }

func checkModelVersion(meta *bbolt.Bucket) error {
	raw := meta.Get(keyModelVersion)
	if raw == nil {
		return meta.Put(keyModelVersion, []byte(strconv.Itoa(ModelVersion)))
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return fmt.Errorf("invalid model version %q: %w", raw, err)
	}
	if v > ModelVersion {
		return fmt.Errorf("%w: %d (supported up to %d)", ErrUnsupportedModel, v, ModelVersion)
	}
	return nil
}

// countKey encodes a version count so that keys sort numerically.
func countKey(count uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], count)
	return k[:]
}

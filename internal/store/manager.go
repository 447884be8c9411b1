package store

import (
	"fmt"
	"path/filepath"
	"sync"
)

// bbolt holds an exclusive file lock, so a second Open of the same file in
// one process blocks. Shared hands out one reference-counted handle per
// path instead.

type manager struct {
	db   *DB
	path string
	refs int
}

var (
	managersMu sync.Mutex
	managers   = make(map[string]*manager)
)

// SharedDB wraps a database connection with reference counting.
type SharedDB struct {
	manager *manager
	once    sync.Once
	*DB
}

// Shared returns a shared connection to the database at path. Calls with
// the same path return the same connection until every SharedDB has been
// closed.
func Shared(path string) (*SharedDB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}

	managersMu.Lock()
	defer managersMu.Unlock()

	m, ok := managers[abs]
	if !ok {
		db, err := Open(abs)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		m = &manager{db: db, path: abs}
		managers[abs] = m
	}
	m.refs++

	return &SharedDB{manager: m, DB: m.db}, nil
}

// Close decrements the reference count and closes the underlying database
// when no more references exist. Closing twice is a no-op.
func (sdb *SharedDB) Close() error {
	var err error
	sdb.once.Do(func() {
		managersMu.Lock()
		defer managersMu.Unlock()

		m := sdb.manager
		m.refs--
		if m.refs <= 0 {
			delete(managers, m.path)
			err = m.db.Close()
		}
	})
	return err
}

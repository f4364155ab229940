// Package storage is the receipt journal of the backend. It records every
// submission request and its outcome in a prefixed key-value store:
//   - 'r/' for receipts, keyed by request id
//   - 'd/' for the index of transaction digests to request ids
//
// The journal is informative: the ledger stays the source of truth.
package storage

import (
	"errors"
	"fmt"

	"github.com/vocdoni/arbo/memdb"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	// Prefixes for the keys in the database.
	receiptPrefix = []byte("r/")
	digestPrefix  = []byte("d/")
)

// ErrNotFound is returned when an artifact is not in the storage.
var ErrNotFound = errors.New("not found")

// Storage wraps the database holding the journal.
type Storage struct {
	db db.Database
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Open returns a storage backed by a pebble database in dir, or by memory if
// dir is empty.
func Open(dir string) (*Storage, error) {
	if dir == "" {
		return New(memdb.New()), nil
	}
	database, err := metadb.New(db.TypePebble, dir)
	if err != nil {
		return nil, fmt.Errorf("cannot open journal at %s: %w", dir, err)
	}
	return New(database), nil
}

// Close closes the storage.
func (s *Storage) Close() error {
	return s.db.Close()
}

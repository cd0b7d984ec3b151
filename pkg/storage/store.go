// Package storage provides the bbolt-backed key/value layer every
// other package builds persistence on: the header chain, the peer
// registry and their respective indexes. It mirrors the teacher's
// database.Table abstraction (a byte-prefixed view over a flat
// keyspace) but is backed directly by bbolt buckets, one per table.
package storage

import (
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store owns a single bbolt file. Callers open Tables against it; the
// Store itself does not expose raw Get/Put.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Table returns a handle to the named bucket, creating it if it does
// not exist yet.
func (s *Store) Table(name string) (*Table, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Table{db: s.db, name: []byte(name)}, nil
}

package storage

import (
	"bytes"
	"errors"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned when a key is absent from a table; callers
// match it with errors.Is the same way the teacher's database.Table
// reports a miss.
var ErrNotFound = errors.New("storage: key not found")

// Table is a single bbolt bucket addressed by flat byte keys. Prefix
// iteration stands in for the teacher's prefix-keyed flat keyspace,
// except here the prefix boundary is the bucket itself, not a key
// fragment, so callers key sub-collections with a short byte prefix
// within the table when they need Prefix to scope correctly.
type Table struct {
	db   *bolt.DB
	name []byte
}

// Put stores value under key, replacing any existing entry.
func (t *Table) Put(key, value []byte) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.name)
		return b.Put(key, value)
	})
}

// Get retrieves the value stored under key, or ErrNotFound.
func (t *Table) Get(key []byte) ([]byte, error) {
	var out []byte
	err := t.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.name)
		v := b.Get(key)
		if v == nil {
			return ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Has reports whether key exists in the table.
func (t *Table) Has(key []byte) (bool, error) {
	_, err := t.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes key, no-op if absent.
func (t *Table) Delete(key []byte) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.name)
		return b.Delete(key)
	})
}

// Prefix returns the values of every key beginning with prefix, in
// key order. The peer registry and the header chain do not call it;
// they use ForEach and Get.
func (t *Table) Prefix(prefix []byte) ([][]byte, error) {
	var out [][]byte
	err := t.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.name)
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			out = append(out, append([]byte(nil), v...))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ForEach iterates every key/value pair in the table in key order,
// stopping early if fn returns an error.
func (t *Table) ForEach(fn func(key, value []byte) error) error {
	return t.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.name)
		return b.ForEach(fn)
	})
}

// Count returns the number of entries in the table.
func (t *Table) Count() (int, error) {
	n := 0
	err := t.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.name)
		stats := b.Stats()
		n = stats.KeyN
		return nil
	})
	return n, err
}

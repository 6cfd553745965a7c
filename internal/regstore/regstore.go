// Package regstore is the on-disk persistence layer for the registry: a
// single bbolt file with one bucket per resource kind, keyed by fully
// qualified name. Every write is a single bucket Put inside its own
// transaction, so concurrent writes to different keys never block each
// other beyond bbolt's single-writer transaction.
package regstore

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketFunctions  = []byte("functions")
	bucketOperations = []byte("operations")
)

// Store is the bbolt-backed key-value store the registry persists
// Functions and Operations into.
type Store struct {
	db *bolt.DB
}

// Open creates or opens "novafn.db" inside dataDir, creating the
// functions and operations buckets if absent.
func Open(dataDir string) (*Store, error) {
	path := filepath.Join(dataDir, "novafn.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("regstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketFunctions, bucketOperations} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutFunction upserts a JSON-encoded Function under key.
func (s *Store) PutFunction(key string, value any) error {
	return put(s.db, bucketFunctions, key, value)
}

// GetFunction loads the Function stored under key into out. Returns
// bolt's nil-data case as ErrNotFound.
func (s *Store) GetFunction(key string, out any) error {
	return get(s.db, bucketFunctions, key, out)
}

// DeleteFunction removes the Function stored under key, if any.
func (s *Store) DeleteFunction(key string) error {
	return del(s.db, bucketFunctions, key)
}

// ListFunctions invokes fn for every stored Function's raw JSON, in
// bbolt's key order (lexicographic over the name string).
func (s *Store) ListFunctions(fn func(key string, raw []byte) error) error {
	return list(s.db, bucketFunctions, fn)
}

// PutOperation upserts a JSON-encoded Operation under key.
func (s *Store) PutOperation(key string, value any) error {
	return put(s.db, bucketOperations, key, value)
}

// GetOperation loads the Operation stored under key into out.
func (s *Store) GetOperation(key string, out any) error {
	return get(s.db, bucketOperations, key, out)
}

// ErrNotFound is returned by Get* when no value is stored under the key.
var ErrNotFound = fmt.Errorf("regstore: key not found")

func put(db *bolt.DB, bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("regstore: marshal %s: %w", key, err)
	}
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func get(db *bolt.DB, bucket []byte, key string, out any) error {
	return db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, out)
	})
}

func del(db *bolt.DB, bucket []byte, key string) error {
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}

func list(db *bolt.DB, bucket []byte, fn func(key string, raw []byte) error) error {
	return db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

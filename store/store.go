// Package store is the state store interface: a bbolt-backed key/value
// database organized into one bucket per index (wallets, assets, tx status,
// configuration, order book levels), with read-only Snapshots and writable
// Forks that support nested checkpoints so a failed transaction kind can be
// rolled back without discarding previously-applied fee side effects.
package store

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned by Get when the key does not exist in the bucket.
var ErrNotFound = errors.New("store: key not found")

// Bucket names, one per index. Every bucket is created up front so reads
// against an as-yet-empty index never have to special-case a missing bucket.
var (
	BucketWallets       = []byte("wallets")
	BucketAssets        = []byte("assets")
	BucketTxStatus      = []byte("tx_status")
	BucketConfiguration = []byte("configuration")
	BucketOrderBookBids = []byte("order_book_bids")
	BucketOrderBookAsks = []byte("order_book_asks")
	BucketCommits       = []byte("commits")
)

var allBuckets = [][]byte{
	BucketWallets,
	BucketAssets,
	BucketTxStatus,
	BucketConfiguration,
	BucketOrderBookBids,
	BucketOrderBookAsks,
	BucketCommits,
}

// Reader is the read side of the store: byte-slice get and ordered scan,
// implemented identically by a Store's point-in-time Snapshot and by a Fork
// (which layers its own pending writes over an underlying Reader).
type Reader interface {
	// Get returns the stored value for key in bucket, or ErrNotFound.
	Get(bucket string, key []byte) ([]byte, error)
	// Iterate calls fn for every key in bucket in ascending byte order,
	// stopping early if fn returns an error.
	Iterate(bucket string, fn func(key, value []byte) error) error
}

// Store is the top-level handle on the on-disk database.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bbolt database at path and ensures
// every index bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt: %w", err)
	}
	s := &Store{db: db}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("store: create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error { return s.db.Close() }

// Snapshot opens a long-lived read-only view of the database, consistent as
// of the moment Snapshot is called. The snapshot must be released with
// Close() once the caller is done with it.
func (s *Store) Snapshot() (*Snapshot, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("store: begin snapshot: %w", err)
	}
	return &Snapshot{tx: tx}, nil
}

// Fork opens a Snapshot and wraps it in a writable Fork.
func (s *Store) Fork() (*Fork, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return NewFork(snap), nil
}

// Apply commits a Fork's pending writes to the database in a single bbolt
// transaction. The Fork's underlying Snapshot is released on return whether
// or not the commit succeeds.
func (s *Store) Apply(f *Fork) error {
	if snap, ok := f.base.(*Snapshot); ok {
		defer snap.Close()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for bucketName, rows := range f.dirty {
			b := tx.Bucket([]byte(bucketName))
			if b == nil {
				return fmt.Errorf("store: unknown bucket %q", bucketName)
			}
			for k, v := range rows {
				if err := b.Put([]byte(k), v); err != nil {
					return err
				}
			}
		}
		for bucketName, rows := range f.deleted {
			b := tx.Bucket([]byte(bucketName))
			if b == nil {
				return fmt.Errorf("store: unknown bucket %q", bucketName)
			}
			for k := range rows {
				if err := b.Delete([]byte(k)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Snapshot is a read-only, point-in-time view of the store.
type Snapshot struct {
	tx *bolt.Tx
}

// Get implements Reader.
func (s *Snapshot) Get(bucket string, key []byte) ([]byte, error) {
	b := s.tx.Bucket([]byte(bucket))
	if b == nil {
		return nil, fmt.Errorf("store: unknown bucket %q", bucket)
	}
	v := b.Get(key)
	if v == nil {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Iterate implements Reader.
func (s *Snapshot) Iterate(bucket string, fn func(key, value []byte) error) error {
	b := s.tx.Bucket([]byte(bucket))
	if b == nil {
		return fmt.Errorf("store: unknown bucket %q", bucket)
	}
	return b.ForEach(fn)
}

// Close releases the underlying read transaction.
func (s *Snapshot) Close() error { return s.tx.Rollback() }

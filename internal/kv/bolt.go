package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"skimvault/pkg/platform/sentinel"
)

// BoltStore persists buckets in a single bbolt file. bbolt already gives one
// writer at a time and snapshot readers, which is exactly the ledger model.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("kv: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("kv: open bolt db: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(&boltTxn{tx: tx})
	})
}

func (s *BoltStore) Update(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := fn(&boltTxn{tx: tx}); err != nil {
			return err
		}
		// Returning an error rolls the bolt transaction back.
		return ctx.Err()
	})
}

type boltTxn struct {
	tx *bbolt.Tx
}

func (t *boltTxn) Get(bucket, key string) ([]byte, error) {
	b := t.tx.Bucket([]byte(bucket))
	if b == nil {
		return nil, sentinel.ErrNotFound
	}
	v := b.Get([]byte(key))
	if v == nil {
		return nil, sentinel.ErrNotFound
	}
	// bbolt memory is only valid for the life of the transaction.
	return copyBytes(v), nil
}

func (t *boltTxn) ForEach(bucket string, fn func(key string, value []byte) error) error {
	b := t.tx.Bucket([]byte(bucket))
	if b == nil {
		return nil
	}
	return b.ForEach(func(k, v []byte) error {
		return fn(string(k), copyBytes(v))
	})
}

func (t *boltTxn) Put(bucket, key string, value []byte) error {
	if err := validName(bucket, key); err != nil {
		return err
	}
	if !t.tx.Writable() {
		return sentinel.ErrReadOnly
	}
	b, err := t.tx.CreateBucketIfNotExists([]byte(bucket))
	if err != nil {
		return fmt.Errorf("kv: create bucket %q: %w", bucket, err)
	}
	if value == nil {
		value = []byte{}
	}
	if err := b.Put([]byte(key), value); err != nil {
		return fmt.Errorf("kv: put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (t *boltTxn) Delete(bucket, key string) error {
	if err := validName(bucket, key); err != nil {
		return err
	}
	if !t.tx.Writable() {
		return sentinel.ErrReadOnly
	}
	b := t.tx.Bucket([]byte(bucket))
	if b == nil {
		return nil
	}
	if err := b.Delete([]byte(key)); err != nil {
		return fmt.Errorf("kv: delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

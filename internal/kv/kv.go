// Package kv is the storage engine behind both ledgers: a bucketed key-value
// store with serialized read-write transactions.
//
// A ledger service owns one Store and performs every mutating call inside a
// single Update, so a call either commits all of its writes (balances,
// counters, inbox marker, outbox entries) or none of them. Update calls are
// serialized per store; View calls observe only committed state.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"skimvault/pkg/platform/sentinel"
)

// Reader reads committed (or, inside Update, staged) state.
type Reader interface {
	// Get returns sentinel.ErrNotFound when the key is absent.
	Get(bucket, key string) ([]byte, error)
	// ForEach visits entries in ascending byte order of key. Returning an
	// error from fn stops iteration and is returned as-is.
	ForEach(bucket string, fn func(key string, value []byte) error) error
}

// Txn is a read-write transaction.
type Txn interface {
	Reader
	Put(bucket, key string, value []byte) error
	Delete(bucket, key string) error
}

// Store is implemented by MemoryStore, BoltStore and PostgresStore.
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Txn) error) error
	Close() error
}

// GetJSON decodes the value at key into T. found is false when the key is absent.
func GetJSON[T any](r Reader, bucket, key string) (value T, found bool, err error) {
	raw, err := r.Get(bucket, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return value, false, nil
	}
	if err != nil {
		return value, false, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("kv: decode %s/%s: %w", bucket, key, err)
	}
	return value, true, nil
}

// PutJSON encodes v and stores it at key.
func PutJSON(tx Txn, bucket, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s/%s: %w", bucket, key, err)
	}
	return tx.Put(bucket, key, raw)
}

func validName(bucket, key string) error {
	if bucket == "" {
		return fmt.Errorf("kv: %w: empty bucket name", sentinel.ErrInvalidState)
	}
	if key == "" {
		return fmt.Errorf("kv: %w: empty key", sentinel.ErrInvalidState)
	}
	return nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

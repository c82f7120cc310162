package kv

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"skimvault/pkg/platform/sentinel"
)

// MemoryStore keeps all buckets in process memory. Writes inside Update are
// staged and applied only when fn returns nil.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("kv: %w: store closed", sentinel.ErrUnavailable)
	}
	return fn(&memTxn{base: s.buckets, readOnly: true})
}

func (s *MemoryStore) Update(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("kv: %w: store closed", sentinel.ErrUnavailable)
	}

	txn := &memTxn{base: s.buckets, staged: make(map[string]map[string]*[]byte)}
	if err := fn(txn); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for bucket, entries := range txn.staged {
		target, ok := s.buckets[bucket]
		if !ok {
			target = make(map[string][]byte)
			s.buckets[bucket] = target
		}
		for key, val := range entries {
			if val == nil {
				delete(target, key)
				continue
			}
			target[key] = *val
		}
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// memTxn overlays staged writes (nil pointer = delete) on the committed maps.
type memTxn struct {
	base     map[string]map[string][]byte
	staged   map[string]map[string]*[]byte
	readOnly bool
}

func (t *memTxn) Get(bucket, key string) ([]byte, error) {
	if entries, ok := t.staged[bucket]; ok {
		if val, ok := entries[key]; ok {
			if val == nil {
				return nil, sentinel.ErrNotFound
			}
			return copyBytes(*val), nil
		}
	}
	val, ok := t.base[bucket][key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyBytes(val), nil
}

func (t *memTxn) ForEach(bucket string, fn func(key string, value []byte) error) error {
	merged := make(map[string][]byte, len(t.base[bucket]))
	for k, v := range t.base[bucket] {
		merged[k] = v
	}
	for k, v := range t.staged[bucket] {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = *v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := fn(k, copyBytes(merged[k])); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTxn) Put(bucket, key string, value []byte) error {
	if t.readOnly {
		return sentinel.ErrReadOnly
	}
	if err := validName(bucket, key); err != nil {
		return err
	}
	v := copyBytes(value)
	if v == nil {
		v = []byte{}
	}
	t.stage(bucket)[key] = &v
	return nil
}

func (t *memTxn) Delete(bucket, key string) error {
	if t.readOnly {
		return sentinel.ErrReadOnly
	}
	if err := validName(bucket, key); err != nil {
		return err
	}
	t.stage(bucket)[key] = nil
	return nil
}

func (t *memTxn) stage(bucket string) map[string]*[]byte {
	entries, ok := t.staged[bucket]
	if !ok {
		entries = make(map[string]*[]byte)
		t.staged[bucket] = entries
	}
	return entries
}

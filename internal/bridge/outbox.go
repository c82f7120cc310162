package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"skimvault/internal/kv"
	"skimvault/pkg/platform/sentinel"
)

const (
	BucketOutbox     = "outbox"
	BucketDeadLetter = "outbox_dead"
	bucketOutboxMeta = "outbox_meta"
	keyNextSeq       = "next_seq"
)

// EntryKind says which relay path drains an outbox entry.
type EntryKind string

const (
	KindBridge EntryKind = "bridge"
	KindSwap   EntryKind = "swap"
)

// Entry is one pending side effect. Payload is an encoded Envelope for
// KindBridge and an encoded swap.Instruction for KindSwap.
type Entry struct {
	Seq       uint64          `json:"seq"`
	Kind      EntryKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
}

func seqKey(seq uint64) string {
	return fmt.Sprintf("%020d", seq)
}

// Enqueue appends an entry inside the caller's transaction, so it commits or
// rolls back together with the state change that produced it.
func Enqueue(tx kv.Txn, kind EntryKind, payload any, now time.Time) (uint64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("bridge: encode %s payload: %w", kind, err)
	}

	seq := uint64(1)
	cur, err := tx.Get(bucketOutboxMeta, keyNextSeq)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
	case err != nil:
		return 0, fmt.Errorf("bridge: read outbox sequence: %w", err)
	default:
		if seq, err = strconv.ParseUint(string(cur), 10, 64); err != nil {
			return 0, fmt.Errorf("bridge: corrupt outbox sequence %q: %w", cur, err)
		}
	}

	entry := Entry{Seq: seq, Kind: kind, Payload: raw, CreatedAt: now.UTC()}
	if err := kv.PutJSON(tx, BucketOutbox, seqKey(seq), entry); err != nil {
		return 0, err
	}
	if err := tx.Put(bucketOutboxMeta, keyNextSeq, []byte(strconv.FormatUint(seq+1, 10))); err != nil {
		return 0, err
	}
	return seq, nil
}

// EnqueueEnvelope is Enqueue for a bridge message.
func EnqueueEnvelope(tx kv.Txn, env Envelope, now time.Time) (uint64, error) {
	return Enqueue(tx, KindBridge, env, now)
}

// Pending returns up to limit entries in sequence order.
func Pending(ctx context.Context, store kv.Store, limit int) ([]Entry, error) {
	var out []Entry
	errStop := errors.New("stop")
	err := store.View(ctx, func(r kv.Reader) error {
		return r.ForEach(BucketOutbox, func(_ string, value []byte) error {
			if limit > 0 && len(out) >= limit {
				return errStop
			}
			var e Entry
			if err := json.Unmarshal(value, &e); err != nil {
				return fmt.Errorf("bridge: decode outbox entry: %w", err)
			}
			out = append(out, e)
			return nil
		})
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return out, nil
}

// PendingCount returns the number of undelivered entries.
func PendingCount(ctx context.Context, store kv.Store) (int, error) {
	n := 0
	err := store.View(ctx, func(r kv.Reader) error {
		return r.ForEach(BucketOutbox, func(string, []byte) error {
			n++
			return nil
		})
	})
	return n, err
}

// MarkSent removes a delivered entry.
func MarkSent(ctx context.Context, store kv.Store, seq uint64) error {
	return store.Update(ctx, func(tx kv.Txn) error {
		return tx.Delete(BucketOutbox, seqKey(seq))
	})
}

// MarkFailed records a failed attempt and leaves the entry pending.
func MarkFailed(ctx context.Context, store kv.Store, seq uint64, cause error) error {
	return store.Update(ctx, func(tx kv.Txn) error {
		e, found, err := kv.GetJSON[Entry](tx, BucketOutbox, seqKey(seq))
		if err != nil || !found {
			return err
		}
		e.Attempts++
		e.LastError = cause.Error()
		return kv.PutJSON(tx, BucketOutbox, seqKey(seq), e)
	})
}

// MoveToDeadLetter parks an entry that can never be delivered.
func MoveToDeadLetter(ctx context.Context, store kv.Store, seq uint64, cause error) error {
	return store.Update(ctx, func(tx kv.Txn) error {
		e, found, err := kv.GetJSON[Entry](tx, BucketOutbox, seqKey(seq))
		if err != nil || !found {
			return err
		}
		e.Attempts++
		e.LastError = cause.Error()
		if err := kv.PutJSON(tx, BucketDeadLetter, seqKey(seq), e); err != nil {
			return err
		}
		return tx.Delete(BucketOutbox, seqKey(seq))
	})
}

// DeadLetters lists parked entries.
func DeadLetters(ctx context.Context, store kv.Store) ([]Entry, error) {
	var out []Entry
	err := store.View(ctx, func(r kv.Reader) error {
		return r.ForEach(BucketDeadLetter, func(_ string, value []byte) error {
			var e Entry
			if err := json.Unmarshal(value, &e); err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	return out, err
}

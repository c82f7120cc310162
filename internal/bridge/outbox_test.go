package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skimvault/internal/kv"
	"skimvault/pkg/domain"
)

func enqueue(t *testing.T, store kv.Store, recipient string) uint64 {
	t.Helper()
	var seq uint64
	err := store.Update(context.Background(), func(tx kv.Txn) error {
		env, err := NewEnvelope("injective", "icp", "inj1vault",
			ForwardDeposit{Recipient: recipient, Amount: domain.NewAmount(1)}, testNow)
		if err != nil {
			return err
		}
		seq, err = EnqueueEnvelope(tx, env, testNow)
		return err
	})
	require.NoError(t, err)
	return seq
}

func TestOutbox(t *testing.T) {
	ctx := context.Background()

	t.Run("sequence numbers increase and pending is ordered", func(t *testing.T) {
		store := kv.NewMemoryStore()
		for i := range 12 {
			assert.Equal(t, uint64(i+1), enqueue(t, store, "r"))
		}

		entries, err := Pending(ctx, store, 0)
		require.NoError(t, err)
		require.Len(t, entries, 12)
		for i, e := range entries {
			assert.Equal(t, uint64(i+1), e.Seq)
			assert.Equal(t, KindBridge, e.Kind)
		}

		limited, err := Pending(ctx, store, 5)
		require.NoError(t, err)
		assert.Len(t, limited, 5)
	})

	t.Run("entries roll back with the transaction", func(t *testing.T) {
		store := kv.NewMemoryStore()
		boom := errors.New("boom")
		err := store.Update(ctx, func(tx kv.Txn) error {
			if _, err := Enqueue(tx, KindSwap, map[string]string{"id": "x"}, testNow); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		n, err := PendingCount(ctx, store)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, uint64(1), enqueue(t, store, "r"))
	})

	t.Run("mark sent removes, mark failed records the attempt", func(t *testing.T) {
		store := kv.NewMemoryStore()
		first := enqueue(t, store, "a")
		second := enqueue(t, store, "b")

		require.NoError(t, MarkSent(ctx, store, first))
		require.NoError(t, MarkFailed(ctx, store, second, errors.New("broker down")))

		entries, err := Pending(ctx, store, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, second, entries[0].Seq)
		assert.Equal(t, 1, entries[0].Attempts)
		assert.Equal(t, "broker down", entries[0].LastError)
	})

	t.Run("dead letter parks the entry", func(t *testing.T) {
		store := kv.NewMemoryStore()
		seq := enqueue(t, store, "a")
		require.NoError(t, MoveToDeadLetter(ctx, store, seq, ErrMalformedMessage))

		n, err := PendingCount(ctx, store)
		require.NoError(t, err)
		assert.Zero(t, n)

		dead, err := DeadLetters(ctx, store)
		require.NoError(t, err)
		require.Len(t, dead, 1)
		assert.Equal(t, seq, dead[0].Seq)
	})
}

func TestInbox(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	env, err := NewEnvelope("icp", "injective", "ledger", SkimYieldTrigger{Recipient: "alice"}, testNow)
	require.NoError(t, err)

	require.NoError(t, store.View(ctx, func(r kv.Reader) error {
		_, seen, err := Seen(r, env.ID)
		assert.False(t, seen)
		return err
	}))

	require.NoError(t, store.Update(ctx, func(tx kv.Txn) error {
		return Record(tx, env, testNow, errors.New("unauthorized"))
	}))

	require.NoError(t, store.View(ctx, func(r kv.Reader) error {
		rec, seen, err := Seen(r, env.ID)
		assert.True(t, seen)
		assert.Equal(t, TagSkimYieldTrigger, rec.Tag)
		assert.Equal(t, "unauthorized", rec.Rejected)
		assert.ErrorIs(t, rec.Err(), ErrRejected)
		assert.True(t, IsPermanent(rec.Err()))
		return err
	}))

	assert.NoError(t, Receipt{MessageID: env.ID}.Err())
}

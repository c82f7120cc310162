package bridge_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skimvault/internal/bridge"
	dErrors "skimvault/pkg/domain-errors"
)

func newConsumer(t *testing.T, transport bridge.Transport, h bridge.Handler) *bridge.Consumer {
	t.Helper()
	c, err := bridge.NewConsumer("icp", transport, h,
		bridge.WithConsumerLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		bridge.WithBackoff(time.Millisecond, 5*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func trigger(t *testing.T, dest bridge.ChainID) bridge.Envelope {
	t.Helper()
	env, err := bridge.NewEnvelope("injective", dest, "inj1vault", bridge.ForwardSkim{Recipient: "alice"}, time.Now())
	require.NoError(t, err)
	return env
}

func TestConsumerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("retries transient failures until success", func(t *testing.T) {
		var calls atomic.Int32
		c := newConsumer(t, bridge.NewLoopback(1), func(context.Context, bridge.Envelope) error {
			if calls.Add(1) < 3 {
				return errors.New("database is restarting")
			}
			return nil
		})
		require.NoError(t, c.Handle(ctx, trigger(t, "icp")))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("drops permanent failures without retry", func(t *testing.T) {
		var calls atomic.Int32
		c := newConsumer(t, bridge.NewLoopback(1), func(context.Context, bridge.Envelope) error {
			calls.Add(1)
			return dErrors.New(dErrors.CodeUnauthorized, "not the manager")
		})
		require.NoError(t, c.Handle(ctx, trigger(t, "icp")))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("does not retry a message rejected earlier", func(t *testing.T) {
		var calls atomic.Int32
		c := newConsumer(t, bridge.NewLoopback(1), func(context.Context, bridge.Envelope) error {
			calls.Add(1)
			return fmt.Errorf("%w: no yield available", bridge.ErrRejected)
		})
		require.NoError(t, c.Handle(ctx, trigger(t, "icp")))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("drops messages for another chain", func(t *testing.T) {
		c := newConsumer(t, bridge.NewLoopback(1), func(context.Context, bridge.Envelope) error {
			t.Fatal("handler must not run")
			return nil
		})
		require.NoError(t, c.Handle(ctx, trigger(t, "elsewhere")))
	})

	t.Run("stops retrying when the context ends", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		c := newConsumer(t, bridge.NewLoopback(1), func(context.Context, bridge.Envelope) error {
			return errors.New("still down")
		})
		assert.ErrorIs(t, c.Handle(cctx, trigger(t, "icp")), context.DeadlineExceeded)
	})
}

func TestLoopbackDeliversToConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := bridge.NewLoopback(4)
	received := make(chan bridge.Envelope, 1)
	c := newConsumer(t, loop, func(_ context.Context, env bridge.Envelope) error {
		received <- env
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	sent := trigger(t, "icp")
	require.NoError(t, loop.Send(ctx, sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("envelope not delivered")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

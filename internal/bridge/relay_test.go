package bridge_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"skimvault/internal/bridge"
	"skimvault/internal/bridge/metrics"
	"skimvault/internal/bridge/mocks"
	"skimvault/internal/kv"
	"skimvault/internal/swap"
	swapmocks "skimvault/internal/swap/mocks"
	"skimvault/pkg/domain"
	"skimvault/pkg/platform/circuit"
)

// =============================================================================
// Relay Test Suite
// =============================================================================
// Justification for unit tests: the relay is the only path by which outbox
// entries leave a ledger. Tests pin delivery order, at-least-once removal,
// dead-lettering of undeliverable entries and breaker behaviour.

type RelaySuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	sender   *mocks.MockSender
	signer   *mocks.MockSigner
	executor *swapmocks.MockExecutor
	store    *kv.MemoryStore
	relay    *bridge.Relay
	metrics  *metrics.Metrics
	settled  []string
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sender = mocks.NewMockSender(s.ctrl)
	s.signer = mocks.NewMockSigner(s.ctrl)
	s.executor = swapmocks.NewMockExecutor(s.ctrl)
	s.store = kv.NewMemoryStore()
	s.settled = nil
	s.metrics = metrics.New(prometheus.NewRegistry())

	var err error
	s.relay, err = bridge.NewRelay("injective", s.store, s.sender,
		bridge.WithSigner(s.signer),
		bridge.WithExecutor(s.executor),
		bridge.WithSettle(func(_ context.Context, in swap.Instruction, _ swap.Result) error {
			s.settled = append(s.settled, in.ID)
			return nil
		}),
		bridge.WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))),
		bridge.WithMetrics(s.metrics),
		bridge.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
}

func (s *RelaySuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RelaySuite) enqueueEnvelope(recipient string) bridge.Envelope {
	env, err := bridge.NewEnvelope("injective", "icp", "inj1vault",
		bridge.ForwardDeposit{Recipient: recipient, Amount: domain.NewAmount(10)}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Update(context.Background(), func(tx kv.Txn) error {
		_, err := bridge.EnqueueEnvelope(tx, env, time.Now())
		return err
	}))
	return env
}

func (s *RelaySuite) enqueueSwap(in swap.Instruction) {
	s.Require().NoError(s.store.Update(context.Background(), func(tx kv.Txn) error {
		_, err := bridge.Enqueue(tx, bridge.KindSwap, in, time.Now())
		return err
	}))
}

func (s *RelaySuite) pending() int {
	n, err := bridge.PendingCount(context.Background(), s.store)
	s.Require().NoError(err)
	return n
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *RelaySuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := bridge.NewRelay("icp", nil, s.sender)
		s.ErrorContains(err, "store is required")
	})

	s.Run("nil sender returns error", func() {
		_, err := bridge.NewRelay("icp", s.store, nil)
		s.ErrorContains(err, "sender is required")
	})
}

// =============================================================================
// Flush Tests
// =============================================================================

func (s *RelaySuite) TestFlush() {
	ctx := context.Background()

	s.Run("signs and sends envelopes in order then removes them", func() {
		first := s.enqueueEnvelope("alice")
		second := s.enqueueEnvelope("bob")

		gomock.InOrder(
			s.signer.EXPECT().Sign(gomock.Any()).Return("proof-1", nil),
			s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, env bridge.Envelope) error {
				s.Equal(first.ID, env.ID)
				s.Equal("proof-1", env.Proof)
				return nil
			}),
			s.signer.EXPECT().Sign(gomock.Any()).Return("proof-2", nil),
			s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, env bridge.Envelope) error {
				s.Equal(second.ID, env.ID)
				return nil
			}),
		)

		n, err := s.relay.Flush(ctx)
		s.NoError(err)
		s.Equal(2, n)
		s.Zero(s.pending())
	})

	s.Run("transport failure keeps the entry and stops the pass", func() {
		s.enqueueEnvelope("carol")
		s.enqueueEnvelope("dave")

		s.signer.EXPECT().Sign(gomock.Any()).Return("p", nil)
		s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("broker unreachable"))

		n, err := s.relay.Flush(ctx)
		s.Error(err)
		s.Zero(n)
		s.Equal(2, s.pending())

		entries, err := bridge.Pending(ctx, s.store, 1)
		s.Require().NoError(err)
		s.Equal(1, entries[0].Attempts)
	})
}

func (s *RelaySuite) TestFlushSwapEntries() {
	ctx := context.Background()
	in := swap.Instruction{
		ID:         "skim-1",
		Direction:  swap.YieldToStable,
		Amount:     domain.NewAmount(5),
		OfferToken: "nusdc",
		AskToken:   "usdc",
		Holder:     "inj1vault",
	}

	s.Run("executes then settles", func() {
		s.enqueueSwap(in)
		s.executor.EXPECT().Quote(gomock.Any(), in).Return(swap.Quote{Offer: in.Amount, Return: in.Amount}, nil)
		s.executor.EXPECT().Execute(gomock.Any(), in).Return(swap.Result{InstructionID: in.ID, Offered: in.Amount, Received: in.Amount}, nil)

		n, err := s.relay.Flush(ctx)
		s.NoError(err)
		s.Equal(1, n)
		s.Equal([]string{"skim-1"}, s.settled)
		s.Zero(promtest.ToFloat64(s.metrics.BelowQuote.WithLabelValues("injective", string(swap.YieldToStable))))
	})

	s.Run("a return below the quote is counted but still settles", func() {
		s.settled = nil
		s.enqueueSwap(in)
		s.executor.EXPECT().Quote(gomock.Any(), in).Return(swap.Quote{Offer: in.Amount, Return: domain.NewAmount(5)}, nil)
		s.executor.EXPECT().Execute(gomock.Any(), in).Return(swap.Result{InstructionID: in.ID, Offered: in.Amount, Received: domain.NewAmount(4)}, nil)

		n, err := s.relay.Flush(ctx)
		s.NoError(err)
		s.Equal(1, n)
		s.Equal([]string{"skim-1"}, s.settled)
		s.Equal(1.0, promtest.ToFloat64(s.metrics.BelowQuote.WithLabelValues("injective", string(swap.YieldToStable))))
	})

	s.Run("an unavailable quote does not block execution", func() {
		s.settled = nil
		s.enqueueSwap(in)
		s.executor.EXPECT().Quote(gomock.Any(), in).Return(swap.Quote{}, swap.ErrRouterUnavailable)
		s.executor.EXPECT().Execute(gomock.Any(), in).Return(swap.Result{InstructionID: in.ID, Offered: in.Amount, Received: in.Amount}, nil)

		n, err := s.relay.Flush(ctx)
		s.NoError(err)
		s.Equal(1, n)
		s.Equal([]string{"skim-1"}, s.settled)
	})

	s.Run("undeliverable swap is dead-lettered and the pass continues", func() {
		s.enqueueSwap(in)
		s.enqueueEnvelope("erin")

		s.executor.EXPECT().Quote(gomock.Any(), in).Return(swap.Quote{Offer: in.Amount, Return: in.Amount}, nil)
		s.executor.EXPECT().Execute(gomock.Any(), in).Return(swap.Result{}, swap.ErrInsufficientFunds)
		s.signer.EXPECT().Sign(gomock.Any()).Return("p", nil)
		s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)

		n, err := s.relay.Flush(ctx)
		s.NoError(err)
		s.Equal(1, n)
		s.Zero(s.pending())

		dead, err := bridge.DeadLetters(ctx, s.store)
		s.Require().NoError(err)
		s.Len(dead, 1)
		s.Equal(bridge.KindSwap, dead[0].Kind)
	})
}

func (s *RelaySuite) TestBreakerStopsDelivery() {
	ctx := context.Background()
	s.enqueueEnvelope("frank")

	s.signer.EXPECT().Sign(gomock.Any()).Return("p", nil).Times(2)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("down")).Times(2)

	_, err := s.relay.Flush(ctx)
	s.Error(err)
	_, err = s.relay.Flush(ctx)
	s.Error(err)

	// Breaker is open now: no further send is attempted.
	n, err := s.relay.Flush(ctx)
	s.NoError(err)
	s.Zero(n)
	s.Equal(1, s.pending())
}

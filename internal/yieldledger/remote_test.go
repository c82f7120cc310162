package yieldledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"skimvault/internal/bridge"
	"skimvault/internal/bridge/mocks"
	"skimvault/internal/kv"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
)

// =============================================================================
// Inbound Bridge Test Suite
// =============================================================================
// Justification for unit tests: forwarded deposits arrive at least once and
// possibly from forged senders. Tests pin provenance gating, inbox dedup and
// the remembered rejection of unsupported actions.

type RemoteSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	verifier *mocks.MockVerifier
	store    *kv.MemoryStore
	service  *Service
}

func TestRemoteSuite(t *testing.T) {
	suite.Run(t, new(RemoteSuite))
}

func (s *RemoteSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.verifier = mocks.NewMockVerifier(s.ctrl)
	s.store = kv.NewMemoryStore()
	var err error
	s.service, err = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithProvenance(s.verifier),
	)
	s.Require().NoError(err)
	s.Require().NoError(s.service.Instantiate(context.Background(), InstantiateRequest{Admin: admin}))
}

func (s *RemoteSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RemoteSuite) envelope(action bridge.Action) bridge.Envelope {
	env, err := bridge.NewEnvelope("injective", "icp", "inj1vault", action, time.Now())
	s.Require().NoError(err)
	return env
}

func (s *RemoteSuite) TestForwardDeposit() {
	ctx := context.Background()
	env := s.envelope(bridge.ForwardDeposit{Recipient: "collector", Amount: domain.NewAmount(150_000_000)})
	s.verifier.EXPECT().Verify(env).Return(nil).Times(2)

	s.Run("credits the recipient like a local deposit", func() {
		out, err := s.service.ApplyRemote(ctx, env)
		s.Require().NoError(err)
		s.False(out.Duplicate)
		s.Require().NotNil(out.Deposit)
		s.True(out.Deposit.Conversion.Triggered)

		view, err := s.service.Balance(ctx, "collector")
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(150_000_000), view.Balance)
		s.Equal(domain.NewAmount(3333), view.Converted)
	})

	s.Run("redelivery is a no-op", func() {
		out, err := s.service.ApplyRemote(ctx, env)
		s.Require().NoError(err)
		s.True(out.Duplicate)

		view, err := s.service.Balance(ctx, "collector")
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(150_000_000), view.Balance)
	})
}

func (s *RemoteSuite) TestInvalidProvenanceChangesNothing() {
	ctx := context.Background()
	env := s.envelope(bridge.ForwardDeposit{Recipient: "mallory", Amount: domain.NewAmount(5)})
	s.verifier.EXPECT().Verify(env).Return(fmt.Errorf("%w: digest mismatch", bridge.ErrInvalidProof))

	_, err := s.service.ApplyRemote(ctx, env)
	s.ErrorIs(err, bridge.ErrInvalidProof)
	s.True(bridge.IsPermanent(err))

	acc, err := s.service.Accumulator(ctx)
	s.Require().NoError(err)
	s.True(acc.IsZero())
}

func (s *RemoteSuite) TestUnsupportedActionIsRememberedAsRejected() {
	ctx := context.Background()
	env := s.envelope(bridge.ForwardSkim{Recipient: "alice"})
	s.verifier.EXPECT().Verify(env).Return(nil).Times(2)

	_, err := s.service.ApplyRemote(ctx, env)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	s.Require().NoError(s.store.View(ctx, func(r kv.Reader) error {
		rec, seen, err := bridge.Seen(r, env.ID)
		s.True(seen)
		s.NotEmpty(rec.Rejected)
		return err
	}))

	out, err := s.service.ApplyRemote(ctx, env)
	s.ErrorIs(err, bridge.ErrRejected)
	s.ErrorContains(err, "not accepted by the yield ledger")
	s.True(bridge.IsPermanent(err))
	s.True(out.Duplicate)
	s.Nil(out.Deposit)
}

func (s *RemoteSuite) TestWithoutVerifierEverythingIsRefused() {
	plain, err := New(s.store)
	s.Require().NoError(err)
	_, err = plain.ApplyRemote(context.Background(),
		s.envelope(bridge.ForwardDeposit{Recipient: "alice", Amount: domain.NewAmount(1)}))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

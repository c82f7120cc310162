package vault

import (
	"context"
	"io"
	"log/slog"

	"skimvault/pkg/domain"
)

// settleOnRead plays the relay settling pending swaps right after the vault
// read its balance, the window between the read and the skim transaction.
type settleOnRead struct {
	Holdings
	settle func()
	reads  int
}

func (h *settleOnRead) BalanceOf(ctx context.Context, token, holder string) (domain.Amount, error) {
	h.reads++
	bal, err := h.Holdings.BalanceOf(ctx, token, holder)
	if h.settle != nil {
		settle := h.settle
		h.settle = nil
		settle()
	}
	return bal, err
}

func (s *VaultSuite) TestSkimRereadsHoldingsSettledMeanwhile() {
	ctx := context.Background()
	_, err := s.service.Deposit(ctx, alice, domain.NewAmount(1_000))
	s.Require().NoError(err)
	s.executeSwaps()

	s.Require().NoError(s.market.Accrue(yieldTok.String(), vaultAddr.String(), domain.NewAmount(50)))
	first, err := s.service.SkimYield(ctx, collector)
	s.Require().NoError(err)
	y, _ := first.Attr("yield_amount")
	s.Equal("50", y)

	s.Require().NoError(s.market.Accrue(yieldTok.String(), vaultAddr.String(), domain.NewAmount(20)))

	holdings := &settleOnRead{Holdings: s.market, settle: s.executeSwaps}
	racing, err := New(s.store, holdings, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	racing.newID = s.service.newID

	second, err := racing.SkimYield(ctx, collector)
	s.Require().NoError(err)
	y, _ = second.Attr("yield_amount")
	s.Equal("20", y, "the settled 50 is not skimmed again")
	s.Equal(2, holdings.reads)

	pending, err := s.service.InFlight(ctx)
	s.Require().NoError(err)
	s.Equal(domain.NewAmount(20), pending)
	s.conserved()
}

func (s *VaultSuite) TestSkimGivesUpWhenHoldingsKeepMoving() {
	calls := 0
	err := s.service.withHoldings(context.Background(), func(state) error { return nil }, func(holdingsRead) error {
		calls++
		return errHoldingsMoved
	})
	s.ErrorIs(err, errHoldingsMoved)
	s.Equal(skimAttempts, calls)
}

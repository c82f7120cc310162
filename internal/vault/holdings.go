package vault

import (
	"context"
	"errors"

	"skimvault/internal/bridge"
	"skimvault/internal/gate"
	"skimvault/internal/kv"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
)

// errHoldingsMoved means a skim swap settled between the holdings read and
// the write transaction, so the read no longer matches the in-flight set.
var errHoldingsMoved = errors.New("vault: holdings changed during skim")

const skimAttempts = 3

// holdingsRead is the vault's yield token balance, read before the write
// transaction so no store lock is held across the router call. settled is
// the settle count the balance was read against.
type holdingsRead struct {
	token   string
	holder  string
	settled uint64
	held    domain.Amount
	ok      bool
}

// readHoldings reads the balance when allowed passes on the current state.
// Domain refusals (not instantiated, wrong caller) yield an empty read; the
// write transaction repeats the check and reports them.
func (s *Service) readHoldings(ctx context.Context, allowed func(state) error) (holdingsRead, error) {
	var hr holdingsRead
	err := s.store.View(ctx, func(r kv.Reader) error {
		st, err := loadState(r)
		if err != nil {
			return err
		}
		if err := allowed(st); err != nil {
			return err
		}
		hr.token, hr.holder = st.config.YieldToken.String(), st.self.String()
		hr.settled, _, err = kv.GetJSON[uint64](r, bucketMeta, keySettled)
		return err
	})
	if _, refused := dErrors.As(err); refused {
		return holdingsRead{}, nil
	} else if err != nil {
		return holdingsRead{}, err
	}

	hr.held, err = s.holdings.BalanceOf(ctx, hr.token, hr.holder)
	if err != nil {
		return holdingsRead{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read vault holdings")
	}
	hr.ok = true
	return hr, nil
}

// current returns the pre-read balance if it still describes st.
func (hr holdingsRead) current(r kv.Reader, st state) (domain.Amount, error) {
	settled, _, err := kv.GetJSON[uint64](r, bucketMeta, keySettled)
	if err != nil {
		return domain.Amount{}, err
	}
	if !hr.ok ||
		hr.token != st.config.YieldToken.String() ||
		hr.holder != st.self.String() ||
		hr.settled != settled {
		return domain.Amount{}, errHoldingsMoved
	}
	return hr.held, nil
}

// withHoldings runs write with a fresh holdings read, reading again when
// the write reports errHoldingsMoved.
func (s *Service) withHoldings(ctx context.Context, allowed func(state) error, write func(holdingsRead) error) error {
	for attempt := 1; ; attempt++ {
		hr, err := s.readHoldings(ctx, allowed)
		if err != nil {
			return err
		}
		err = write(hr)
		if !errors.Is(err, errHoldingsMoved) || attempt == skimAttempts {
			return err
		}
		s.logger.DebugContext(ctx, "holdings moved during skim, reading again", "attempt", attempt)
	}
}

// runRemote runs write once, or through withHoldings when action skims.
func (s *Service) runRemote(ctx context.Context, caller domain.Address, action bridge.Action, write func(holdingsRead) error) error {
	if _, ok := action.(bridge.ForwardSkim); !ok {
		return write(holdingsRead{})
	}
	return s.withHoldings(ctx, func(st state) error {
		return gate.Holder(caller, st.manager, "remote manager")
	}, write)
}

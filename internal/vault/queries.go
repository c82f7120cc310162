package vault

import (
	"context"
	"errors"
	"fmt"

	"skimvault/internal/kv"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
)

func (s *Service) view(ctx context.Context, fn func(kv.Reader, state) error) error {
	err := s.store.View(ctx, func(r kv.Reader) error {
		st, err := loadState(r)
		if err != nil {
			return err
		}
		return fn(r, st)
	})
	return storeErr(err, "failed to read vault state")
}

func (s *Service) Config(ctx context.Context) (Config, error) {
	var cfg Config
	err := s.view(ctx, func(_ kv.Reader, st state) error {
		cfg = st.config
		return nil
	})
	return cfg, err
}

// Principal returns addr's deposited principal; unknown addresses hold zero.
func (s *Service) Principal(ctx context.Context, addr domain.Address) (domain.Amount, error) {
	addr, err := s.address(addr.String(), "address")
	if err != nil {
		return domain.Amount{}, err
	}
	var out domain.Amount
	err = s.view(ctx, func(r kv.Reader, _ state) error {
		var err error
		out, err = amountAt(r, bucketPrincipal, addr.String())
		return err
	})
	return out, err
}

func (s *Service) TotalPrincipal(ctx context.Context) (domain.Amount, error) {
	var out domain.Amount
	err := s.view(ctx, func(r kv.Reader, _ state) error {
		var err error
		out, err = amountAt(r, bucketMeta, keyTotalPrincipal)
		return err
	})
	return out, err
}

// InFlight sums yield committed to swaps that have not settled.
func (s *Service) InFlight(ctx context.Context) (domain.Amount, error) {
	var out domain.Amount
	err := s.view(ctx, func(r kv.Reader, _ state) error {
		var err error
		out, err = sumInflight(r)
		return err
	})
	return out, err
}

// AssetBalance returns the vault's holdings of the yield token.
func (s *Service) AssetBalance(ctx context.Context) (domain.Amount, error) {
	var st state
	if err := s.view(ctx, func(_ kv.Reader, loaded state) error {
		st = loaded
		return nil
	}); err != nil {
		return domain.Amount{}, err
	}
	held, err := s.holdings.BalanceOf(ctx, st.config.YieldToken.String(), st.self.String())
	if err != nil {
		return domain.Amount{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read vault holdings")
	}
	return held, nil
}

func (s *Service) RemoteManager(ctx context.Context) (domain.Address, error) {
	var out domain.Address
	err := s.view(ctx, func(_ kv.Reader, st state) error {
		out = st.manager
		return nil
	})
	return out, err
}

func (s *Service) ContractVersion(ctx context.Context) (ContractInfo, error) {
	var out ContractInfo
	err := s.view(ctx, func(r kv.Reader, _ state) error {
		var err error
		out, _, err = kv.GetJSON[ContractInfo](r, bucketMeta, keyContract)
		return err
	})
	return out, err
}

var errConservation = errors.New("total principal does not match the sum of deposits")

// CheckConservation recomputes the sum of per-address principal and compares
// it with the stored total.
func (s *Service) CheckConservation(ctx context.Context) error {
	err := s.view(ctx, func(r kv.Reader, _ state) error {
		total, err := amountAt(r, bucketMeta, keyTotalPrincipal)
		if err != nil {
			return err
		}
		sum, err := sumPrincipal(r)
		if err != nil {
			return err
		}
		if sum.Cmp(total) != 0 {
			return dErrors.Wrap(fmt.Errorf("%w: total %s, sum %s", errConservation, total, sum),
				dErrors.CodeInvariantViolation, "principal conservation violated")
		}
		return nil
	})
	return err
}

package yieldledger

import (
	"context"

	"skimvault/internal/kv"
	"skimvault/internal/pricing"
	"skimvault/pkg/domain"
)

func (s *Service) view(ctx context.Context, fn func(kv.Reader) error) error {
	return storeErr(s.store.View(ctx, fn), "failed to read ledger")
}

func (s *Service) meta(ctx context.Context, key string) (domain.Amount, error) {
	var a domain.Amount
	err := s.view(ctx, func(r kv.Reader) error {
		var err error
		a, err = amountAt(r, bucketMeta, key)
		return err
	})
	return a, err
}

// Balance returns principal's stable and converted balances.
func (s *Service) Balance(ctx context.Context, principal domain.Principal) (BalanceView, error) {
	v := BalanceView{Principal: principal}
	err := s.view(ctx, func(r kv.Reader) error {
		var err error
		if v.Balance, err = amountAt(r, bucketBalances, principal.String()); err != nil {
			return err
		}
		v.Converted, err = amountAt(r, bucketConverted, principal.String())
		return err
	})
	return v, err
}

// ConvertedBalance values principal's converted balance at the stored rate.
func (s *Service) ConvertedBalance(ctx context.Context, principal domain.Principal) (ConvertedView, error) {
	v := ConvertedView{Principal: principal}
	err := s.view(ctx, func(r kv.Reader) error {
		var err error
		if v.Converted, err = amountAt(r, bucketConverted, principal.String()); err != nil {
			return err
		}
		v.Rate, err = rate(r)
		return err
	})
	if err != nil {
		return ConvertedView{}, err
	}
	if v.USDValue, err = pricing.USDValue(v.Converted, v.Rate); err != nil {
		return ConvertedView{}, storeErr(err, "failed to value balance")
	}
	v.USDDisplay = pricing.FormatUnits(v.USDValue, pricing.StableDecimals)
	return v, nil
}

func (s *Service) Accumulator(ctx context.Context) (domain.Amount, error) {
	return s.meta(ctx, keyAccumulator)
}

func (s *Service) TotalConverted(ctx context.Context) (domain.Amount, error) {
	return s.meta(ctx, keyTotalConverted)
}

func (s *Service) Threshold(ctx context.Context) (domain.Amount, error) {
	return s.meta(ctx, keyThreshold)
}

// Dust is the converted amount retained unallocated across all batches.
func (s *Service) Dust(ctx context.Context) (domain.Amount, error) {
	return s.meta(ctx, keyDust)
}

func (s *Service) Price(ctx context.Context) (pricing.Rate, error) {
	var rt pricing.Rate
	err := s.view(ctx, func(r kv.Reader) error {
		var err error
		rt, err = rate(r)
		return err
	})
	return rt, err
}

func (s *Service) Config(ctx context.Context) (Config, error) {
	var cfg Config
	err := s.view(ctx, func(r kv.Reader) error {
		if _, err := requireInstantiated(r); err != nil {
			return err
		}
		var err error
		cfg, _, err = kv.GetJSON[Config](r, bucketMeta, keyConfig)
		return err
	})
	return cfg, err
}

func (s *Service) Admin(ctx context.Context) (domain.Principal, error) {
	var adm domain.Principal
	err := s.view(ctx, func(r kv.Reader) error {
		var err error
		adm, err = requireInstantiated(r)
		return err
	})
	return adm, err
}

// Holders returns every principal with a stable balance entry.
func (s *Service) Holders(ctx context.Context) ([]BalanceView, error) {
	var out []BalanceView
	err := s.view(ctx, func(r kv.Reader) error {
		holdings, err := snapshot(r)
		if err != nil {
			return err
		}
		for _, h := range holdings {
			converted, err := amountAt(r, bucketConverted, h.Principal.String())
			if err != nil {
				return err
			}
			out = append(out, BalanceView{Principal: h.Principal, Balance: h.Balance, Converted: converted})
		}
		return nil
	})
	return out, err
}

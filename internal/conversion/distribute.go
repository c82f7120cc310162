// Package conversion allocates a batch of converted asset across the holders
// of the stable asset, pro rata to a balance snapshot.
package conversion

import (
	"fmt"

	"skimvault/pkg/domain"
)

// Holding is one principal's stable balance at snapshot time.
type Holding struct {
	Principal domain.Principal
	Balance   domain.Amount
}

// Share is the converted amount credited to one principal.
type Share struct {
	Principal domain.Principal `json:"principal"`
	Amount    domain.Amount    `json:"amount"`
}

// Distribution is the outcome of one batch allocation.
type Distribution struct {
	Shares      []Share       `json:"shares"`
	Produced    domain.Amount `json:"produced"`
	Distributed domain.Amount `json:"distributed"`
	// Dust is Produced - Distributed. It is retained, never re-allocated.
	Dust domain.Amount `json:"dust"`
	// Divisor is the denominator actually used.
	Divisor domain.Amount `json:"divisor"`
}

// Distribute computes share = floor(balance * produced / divisor) for each
// holding with a positive balance and drops zero shares.
//
// divisor is normally the captured batch amount. If the snapshot holds more
// than divisor in total, the snapshot total is used instead so that the sum of
// shares can never exceed produced.
//
// snapshot must be read before any ledger mutation of the same call.
func Distribute(snapshot []Holding, produced, divisor domain.Amount) (Distribution, error) {
	out := Distribution{Produced: produced, Distributed: domain.Zero, Dust: produced}
	if produced.IsZero() {
		out.Divisor = divisor
		return out, nil
	}
	if divisor.IsZero() {
		return Distribution{}, ErrZeroDivisor
	}

	seen := make(map[domain.Principal]struct{}, len(snapshot))
	total := domain.Zero
	for _, h := range snapshot {
		if _, dup := seen[h.Principal]; dup {
			return Distribution{}, fmt.Errorf("%w: %s", ErrDuplicateHolder, h.Principal)
		}
		seen[h.Principal] = struct{}{}

		var err error
		if total, err = total.Add(h.Balance); err != nil {
			return Distribution{}, fmt.Errorf("conversion: snapshot total: %w", err)
		}
	}
	if divisor.LessThan(total) {
		divisor = total
	}
	out.Divisor = divisor

	distributed := domain.Zero
	for _, h := range snapshot {
		if h.Balance.IsZero() {
			continue
		}
		share, err := h.Balance.MulDiv(produced, divisor)
		if err != nil {
			return Distribution{}, fmt.Errorf("conversion: share for %s: %w", h.Principal, err)
		}
		if share.IsZero() {
			continue
		}
		out.Shares = append(out.Shares, Share{Principal: h.Principal, Amount: share})
		if distributed, err = distributed.Add(share); err != nil {
			return Distribution{}, err
		}
	}

	dust, err := produced.Sub(distributed)
	if err != nil {
		// Unreachable while divisor >= snapshot total.
		return Distribution{}, fmt.Errorf("conversion: over-allocation: %w", err)
	}
	out.Distributed = distributed
	out.Dust = dust
	return out, nil
}

package swap

import (
	"context"
	"fmt"
	"sync"

	"skimvault/pkg/domain"
)

const fullRateBPS = 10_000

// Simulator is a deterministic in-memory exchange. It tracks token holdings
// per holder, swaps at a fixed basis-point rate and lets tests accrue yield.
// It also answers balance queries, so it doubles as the vault's view of its
// own holdings.
type Simulator struct {
	mu       sync.Mutex
	rateBPS  uint64
	holdings map[string]map[string]domain.Amount
	executed map[string]Result
}

var _ Executor = (*Simulator)(nil)

func NewSimulator(rateBPS uint64) *Simulator {
	if rateBPS == 0 {
		rateBPS = fullRateBPS
	}
	return &Simulator{
		rateBPS:  rateBPS,
		holdings: make(map[string]map[string]domain.Amount),
		executed: make(map[string]Result),
	}
}

func (s *Simulator) quote(amount domain.Amount) (domain.Amount, error) {
	return amount.MulDiv(domain.NewAmount(s.rateBPS), domain.NewAmount(fullRateBPS))
}

func (s *Simulator) Quote(_ context.Context, in Instruction) (Quote, error) {
	if err := in.Validate(); err != nil {
		return Quote{}, err
	}
	ret, err := s.quote(in.Amount)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Offer: in.Amount, Return: ret}, nil
}

// Execute moves holdings. The stable leg of StableToYield is assumed to have
// been delivered by the depositor, so only the ask side is credited; the
// stable leg of YieldToStable leaves with the bridge message.
func (s *Simulator) Execute(_ context.Context, in Instruction) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if res, ok := s.executed[in.ID]; ok {
		return res, nil
	}

	received, err := s.quote(in.Amount)
	if err != nil {
		return Result{}, err
	}

	switch in.Direction {
	case StableToYield:
		if err := s.credit(in.AskToken, in.Holder, received); err != nil {
			return Result{}, err
		}
	case YieldToStable:
		if err := s.debit(in.OfferToken, in.Holder, in.Amount); err != nil {
			return Result{}, err
		}
	}

	res := Result{InstructionID: in.ID, Offered: in.Amount, Received: received}
	s.executed[in.ID] = res
	return res, nil
}

// Accrue credits holder with amount of token, simulating yield.
func (s *Simulator) Accrue(token, holder string, amount domain.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credit(token, holder, amount)
}

// BalanceOf returns holder's balance of token.
func (s *Simulator) BalanceOf(_ context.Context, token, holder string) (domain.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdings[token][holder], nil
}

func (s *Simulator) credit(token, holder string, amount domain.Amount) error {
	byHolder, ok := s.holdings[token]
	if !ok {
		byHolder = make(map[string]domain.Amount)
		s.holdings[token] = byHolder
	}
	next, err := byHolder[holder].Add(amount)
	if err != nil {
		return err
	}
	byHolder[holder] = next
	return nil
}

func (s *Simulator) debit(token, holder string, amount domain.Amount) error {
	next, err := s.holdings[token][holder].Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %s holds less than %s %s", ErrInsufficientFunds, holder, amount, token)
	}
	s.holdings[token][holder] = next
	return nil
}

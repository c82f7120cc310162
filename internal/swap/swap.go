// Package swap is the boundary to the external exchange that turns the stable
// asset into the yield-bearing asset and back. Ledgers only emit Instructions;
// an Executor carries them out.
package swap

//go:generate mockgen -source=swap.go -destination=mocks/mocks.go -package=mocks Executor

import (
	"context"
	"errors"

	"skimvault/pkg/domain"
)

type Direction string

const (
	StableToYield Direction = "stable_to_yield"
	YieldToStable Direction = "yield_to_stable"
)

func (d Direction) Valid() bool {
	return d == StableToYield || d == YieldToStable
}

var (
	ErrInvalidInstruction = errors.New("swap: invalid instruction")
	ErrInsufficientFunds  = errors.New("swap: insufficient holdings")
	ErrRouterUnavailable  = errors.New("swap: router unavailable")
)

// Instruction asks the executor to swap Amount of OfferToken for AskToken on
// behalf of Holder. ID is unique per instruction and makes execution idempotent.
type Instruction struct {
	ID         string        `json:"id"`
	Direction  Direction     `json:"direction"`
	Amount     domain.Amount `json:"amount"`
	OfferToken string        `json:"offer_token"`
	AskToken   string        `json:"ask_token"`
	Holder     string        `json:"holder"`
	Router     string        `json:"router,omitempty"`
}

func (i Instruction) Validate() error {
	if i.ID == "" || !i.Direction.Valid() || i.Amount.IsZero() || i.OfferToken == "" || i.AskToken == "" || i.Holder == "" {
		return ErrInvalidInstruction
	}
	return nil
}

type Quote struct {
	Offer  domain.Amount `json:"offer"`
	Return domain.Amount `json:"return"`
}

type Result struct {
	InstructionID string        `json:"instruction_id"`
	Offered       domain.Amount `json:"offered"`
	Received      domain.Amount `json:"received"`
}

// Executor quotes and executes swaps. Execute must be idempotent per
// Instruction.ID: a repeated call returns the original Result.
type Executor interface {
	Quote(ctx context.Context, in Instruction) (Quote, error)
	Execute(ctx context.Context, in Instruction) (Result, error)
}

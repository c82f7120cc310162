package yieldledger

import (
	"github.com/google/uuid"

	"skimvault/internal/conversion"
	"skimvault/internal/pricing"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
)

// DefaultThreshold is 100 stable units at 6 decimals.
var DefaultThreshold = domain.NewAmount(100_000_000)

// Config holds the external identities the ledger talks to. It is replaced
// wholesale, never patched.
type Config struct {
	RemoteContract string `json:"remote_contract"`
	Gateway        string `json:"gateway"`
	YieldCollector string `json:"yield_collector"`
	PriceOracle    string `json:"price_oracle"`
}

type InstantiateRequest struct {
	Admin     domain.Principal
	Config    Config
	Threshold domain.Amount
	Rate      pricing.Rate
}

// ConversionResult reports one convert attempt. When Triggered is false the
// accumulator was below threshold and nothing changed.
type ConversionResult struct {
	Triggered    bool                     `json:"triggered"`
	Accumulator  domain.Amount            `json:"accumulator"`
	Threshold    domain.Amount            `json:"threshold"`
	Converted    domain.Amount            `json:"converted_stable,omitempty"`
	Rate         pricing.Rate             `json:"rate,omitempty"`
	Distribution *conversion.Distribution `json:"distribution,omitempty"`
}

type DepositResult struct {
	Principal  domain.Principal `json:"principal"`
	Balance    domain.Amount    `json:"balance"`
	Conversion ConversionResult `json:"conversion"`
}

type ManualConversionResult struct {
	Principal domain.Principal `json:"principal"`
	Debited   domain.Amount    `json:"debited"`
	Credited  domain.Amount    `json:"credited"`
	Balance   domain.Amount    `json:"balance"`
	Converted domain.Amount    `json:"converted"`
}

// WithdrawResult holds the values removed by an emergency withdrawal.
type WithdrawResult struct {
	Principal domain.Principal `json:"principal"`
	Balance   domain.Amount    `json:"balance"`
	Converted domain.Amount    `json:"converted"`
}

type BalanceView struct {
	Principal domain.Principal `json:"principal"`
	Balance   domain.Amount    `json:"balance"`
	Converted domain.Amount    `json:"converted"`
}

// ConvertedView values a converted balance at the current rate. USDValue is
// in stable base units.
type ConvertedView struct {
	Principal  domain.Principal `json:"principal"`
	Converted  domain.Amount    `json:"converted"`
	Rate       pricing.Rate     `json:"rate"`
	USDValue   domain.Amount    `json:"usd_value"`
	USDDisplay string           `json:"usd_display"`
}

// RemoteOutcome reports how an inbound bridge message was handled.
type RemoteOutcome struct {
	MessageID uuid.UUID      `json:"message_id"`
	Duplicate bool           `json:"duplicate"`
	Deposit   *DepositResult `json:"deposit,omitempty"`
}

var (
	errNotInstantiated = dErrors.New(dErrors.CodeConflict, "ledger is not instantiated")
	errZeroAmount      = dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
)

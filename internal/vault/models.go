package vault

import (
	"context"

	"github.com/google/uuid"

	"skimvault/internal/bridge"
	"skimvault/internal/swap"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
)

const (
	ContractName    = "skimvault_vault"
	ContractVersion = "1.0.0"
)

// Holdings reports token balances held by an account. The vault asks it for
// its own yield token balance when skimming.
type Holdings interface {
	BalanceOf(ctx context.Context, token, holder string) (domain.Amount, error)
}

type InstantiateRequest struct {
	// Self is the vault's own address, the holder of its yield tokens.
	Self          domain.Address
	Config        Config
	RemoteManager domain.Address
}

type ContractInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Message is one outbound effect of a call, already queued in the outbox.
type Message struct {
	Seq    uint64            `json:"seq"`
	Kind   bridge.EntryKind  `json:"kind"`
	Swap   *swap.Instruction `json:"swap,omitempty"`
	Bridge *bridge.Envelope  `json:"bridge,omitempty"`
}

// Receipt is what a successful call returns: the action name, its
// attributes in emission order and the messages it queued.
type Receipt struct {
	Action     string      `json:"action"`
	Attributes []Attribute `json:"attributes"`
	Messages   []Message   `json:"messages"`
}

func (r *Receipt) attr(key, value string) {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
}

// Attr returns the first attribute named key.
func (r Receipt) Attr(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// RemoteOutcome reports how an inbound bridge message was handled.
type RemoteOutcome struct {
	MessageID uuid.UUID `json:"message_id"`
	Duplicate bool      `json:"duplicate"`
	Receipt   *Receipt  `json:"receipt,omitempty"`
}

var (
	errNotInstantiated = dErrors.New(dErrors.CodeConflict, "vault is not instantiated")
	errZeroAmount      = dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	errNoYield         = dErrors.New(dErrors.CodeNoYieldAvailable, "no yield available")
)

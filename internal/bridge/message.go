// Package bridge carries actions between the yield ledger and the vault.
//
// Ledgers never talk to each other directly. A mutating call writes the
// messages it wants to send into its own outbox, inside the same storage
// transaction as the state change. A Relay later drains the outbox, signs each
// envelope and hands it to a Transport. On the receiving side a Consumer feeds
// envelopes to the ledger, which verifies provenance and deduplicates by
// message id through its inbox. Delivery is at-least-once.
package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"skimvault/pkg/domain"
)

// ChainID names a chain taking part in the bridge.
type ChainID string

type ActionTag string

const (
	TagForwardDeposit   ActionTag = "forward_deposit"
	TagForwardSkim      ActionTag = "forward_skim"
	TagReplaceConfig    ActionTag = "replace_config"
	TagSkimYieldTrigger ActionTag = "skim_yield_trigger"
)

// Action is the sealed set of operations a message can carry.
type Action interface {
	Tag() ActionTag
	validate() error
}

// ForwardDeposit credits Amount to Recipient on the destination chain.
type ForwardDeposit struct {
	Recipient string
	Amount    domain.Amount
}

// ForwardSkim asks the vault to skim and forward the yield to Recipient.
type ForwardSkim struct {
	Recipient string
}

// ReplaceConfig overwrites the destination's configuration wholesale. The
// payload is opaque to the bridge; the receiving ledger decodes it.
type ReplaceConfig struct {
	Config json.RawMessage
}

// SkimYieldTrigger is sent by the yield ledger to request a skim.
type SkimYieldTrigger struct {
	Recipient string
}

func (ForwardDeposit) Tag() ActionTag   { return TagForwardDeposit }
func (ForwardSkim) Tag() ActionTag      { return TagForwardSkim }
func (ReplaceConfig) Tag() ActionTag    { return TagReplaceConfig }
func (SkimYieldTrigger) Tag() ActionTag { return TagSkimYieldTrigger }

func (a ForwardDeposit) validate() error {
	if a.Recipient == "" {
		return fmt.Errorf("%w: forward_deposit without recipient", ErrMalformedMessage)
	}
	if a.Amount.IsZero() {
		return fmt.Errorf("%w: forward_deposit of zero", ErrMalformedMessage)
	}
	return nil
}

func (a ForwardSkim) validate() error {
	if a.Recipient == "" {
		return fmt.Errorf("%w: forward_skim without recipient", ErrMalformedMessage)
	}
	return nil
}

func (a ReplaceConfig) validate() error {
	if len(a.Config) == 0 || !json.Valid(a.Config) {
		return fmt.Errorf("%w: replace_config payload is not JSON", ErrMalformedMessage)
	}
	return nil
}

func (a SkimYieldTrigger) validate() error {
	if a.Recipient == "" {
		return fmt.Errorf("%w: skim trigger without recipient", ErrMalformedMessage)
	}
	return nil
}

// Envelope is one message on the wire. Proof is attached by the relay just
// before sending and covers every other field.
type Envelope struct {
	ID          uuid.UUID
	Source      ChainID
	Destination ChainID
	Origin      string
	Action      Action
	CreatedAt   time.Time
	Proof       string
}

func NewEnvelope(source, destination ChainID, origin string, action Action, now time.Time) (Envelope, error) {
	if action == nil {
		return Envelope{}, fmt.Errorf("%w: nil action", ErrMalformedMessage)
	}
	if err := action.validate(); err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:          uuid.New(),
		Source:      source,
		Destination: destination,
		Origin:      origin,
		Action:      action,
		CreatedAt:   now.UTC(),
	}, nil
}

// NewAction builds and validates the action named by tag from its flat
// fields. Fields the action does not use are ignored.
func NewAction(tag ActionTag, recipient string, amount domain.Amount, config json.RawMessage) (Action, error) {
	var action Action
	switch tag {
	case TagForwardDeposit:
		action = ForwardDeposit{Recipient: recipient, Amount: amount}
	case TagForwardSkim:
		action = ForwardSkim{Recipient: recipient}
	case TagReplaceConfig:
		action = ReplaceConfig{Config: config}
	case TagSkimYieldTrigger:
		action = SkimYieldTrigger{Recipient: recipient}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, tag)
	}
	if err := action.validate(); err != nil {
		return nil, err
	}
	return action, nil
}

type wireEnvelope struct {
	ID          uuid.UUID       `json:"id"`
	Source      ChainID         `json:"source"`
	Destination ChainID         `json:"destination"`
	CreatedAt   time.Time       `json:"created_at"`
	ActionTag   ActionTag       `json:"action_tag"`
	Origin      string          `json:"origin"`
	Amount      domain.Amount   `json:"amount"`
	Recipient   string          `json:"recipient,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	Proof       string          `json:"proof,omitempty"`
}

func (e Envelope) toWire() (wireEnvelope, error) {
	w := wireEnvelope{
		ID:          e.ID,
		Source:      e.Source,
		Destination: e.Destination,
		CreatedAt:   e.CreatedAt,
		Origin:      e.Origin,
		Proof:       e.Proof,
	}
	switch a := e.Action.(type) {
	case ForwardDeposit:
		w.Recipient, w.Amount = a.Recipient, a.Amount
	case ForwardSkim:
		w.Recipient = a.Recipient
	case ReplaceConfig:
		w.Config = a.Config
	case SkimYieldTrigger:
		w.Recipient = a.Recipient
	default:
		return wireEnvelope{}, fmt.Errorf("%w: %T", ErrUnknownAction, e.Action)
	}
	w.ActionTag = e.Action.Tag()
	return w, nil
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	w, err := e.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if w.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrMalformedMessage)
	}

	action, err := NewAction(w.ActionTag, w.Recipient, w.Amount, w.Config)
	if err != nil {
		return err
	}

	*e = Envelope{
		ID:          w.ID,
		Source:      w.Source,
		Destination: w.Destination,
		Origin:      w.Origin,
		Action:      action,
		CreatedAt:   w.CreatedAt,
		Proof:       w.Proof,
	}
	return nil
}

// SigningBytes is the canonical encoding covered by the proof: the wire form
// with the proof field left out.
func (e Envelope) SigningBytes() ([]byte, error) {
	w, err := e.toWire()
	if err != nil {
		return nil, err
	}
	w.Proof = ""
	if len(w.Config) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, w.Config); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		}
		w.Config = buf.Bytes()
	}
	return json.Marshal(w)
}

// Decode parses a wire envelope.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		if errors.Is(err, ErrMalformedMessage) || errors.Is(err, ErrUnknownAction) {
			return Envelope{}, err
		}
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return e, nil
}

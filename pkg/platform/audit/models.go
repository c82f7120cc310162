package audit

import (
	"context"
	"time"
)

// Category classifies audit events by their primary purpose, so stores can
// apply different retention.
type Category string

const (
	// CategoryAccounting covers events that move value between balances.
	CategoryAccounting Category = "accounting"

	// CategorySecurity covers refused calls and changes to privileged roles.
	CategorySecurity Category = "security"

	// CategoryOperations covers routine configuration and bridge activity.
	CategoryOperations Category = "operations"
)

type Action string

const (
	// Yield ledger
	ActionDeposit           Action = "deposit"
	ActionBatchConversion   Action = "batch_conversion"
	ActionManualConversion  Action = "manual_conversion"
	ActionEmergencyWithdraw Action = "emergency_withdraw"
	ActionConfigReplaced    Action = "config_replaced"
	ActionPriceSet          Action = "price_set"
	ActionAdminRotated      Action = "admin_rotated"
	ActionSkimRequested     Action = "skim_requested"

	// Vault
	ActionSkim           Action = "skim_yield"
	ActionManagerRotated Action = "manager_rotated"

	// Both
	ActionRemoteApplied  Action = "remote_applied"
	ActionRemoteRejected Action = "remote_rejected"
	ActionAccessDenied   Action = "access_denied"
)

var categories = map[Action]Category{
	ActionDeposit:           CategoryAccounting,
	ActionBatchConversion:   CategoryAccounting,
	ActionManualConversion:  CategoryAccounting,
	ActionEmergencyWithdraw: CategoryAccounting,
	ActionSkim:              CategoryAccounting,

	ActionAdminRotated:   CategorySecurity,
	ActionManagerRotated: CategorySecurity,
	ActionAccessDenied:   CategorySecurity,
	ActionRemoteRejected: CategorySecurity,

	ActionConfigReplaced: CategoryOperations,
	ActionPriceSet:       CategoryOperations,
	ActionSkimRequested:  CategoryOperations,
	ActionRemoteApplied:  CategoryOperations,
}

// Category returns the category for the action. Unknown actions are
// operational.
func (a Action) Category() Category {
	if c, ok := categories[a]; ok {
		return c
	}
	return CategoryOperations
}

// Event records one ledger operation after it committed, or one refusal.
// Amounts are decimal strings so the package stays free of ledger types.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Ledger    string    `json:"ledger"`
	Action    Action    `json:"action"`
	Category  Category  `json:"category"`
	Actor     string    `json:"actor,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Emitter accepts events from the ledgers. Emit must not block on storage.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

type Store interface {
	Append(ctx context.Context, e Event) error
	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

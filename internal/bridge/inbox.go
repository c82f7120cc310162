package bridge

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"skimvault/internal/kv"
)

const BucketInbox = "inbox"

// Receipt is what a ledger remembers about an inbound message. A message
// whose action was rejected is remembered too, with the rejection, so
// redelivery does not run it again.
type Receipt struct {
	MessageID uuid.UUID `json:"message_id"`
	Tag       ActionTag `json:"action_tag"`
	Source    ChainID   `json:"source"`
	AppliedAt time.Time `json:"applied_at"`
	Rejected  string    `json:"rejected,omitempty"`
}

// Seen looks up a previously handled message. Call it inside the handler's
// transaction.
func Seen(r kv.Reader, id uuid.UUID) (Receipt, bool, error) {
	return kv.GetJSON[Receipt](r, BucketInbox, id.String())
}

// Err is the recorded rejection wrapped in ErrRejected, or nil when the
// message was applied.
func (r Receipt) Err() error {
	if r.Rejected == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRejected, r.Rejected)
}

// Record marks a message handled.
func Record(tx kv.Txn, env Envelope, now time.Time, rejection error) error {
	rec := Receipt{
		MessageID: env.ID,
		Tag:       env.Action.Tag(),
		Source:    env.Source,
		AppliedAt: now.UTC(),
	}
	if rejection != nil {
		rec.Rejected = rejection.Error()
	}
	return kv.PutJSON(tx, BucketInbox, env.ID.String(), rec)
}

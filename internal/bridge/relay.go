package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skimvault/internal/bridge/metrics"
	"skimvault/internal/kv"
	"skimvault/internal/swap"
	"skimvault/pkg/platform/circuit"
)

var errNoExecutor = errors.New("bridge: swap entry but no executor configured")

// SettleFunc is called after a swap instruction executed, before its outbox
// entry is removed. Ledgers use it to release amounts they held back while
// the swap was in flight.
type SettleFunc func(ctx context.Context, in swap.Instruction, res swap.Result) error

// Relay drains one ledger's outbox. Entries are removed only after the
// hand-off succeeded, so a crash between hand-off and removal re-sends the
// entry on the next pass; receivers deduplicate by message id and executors
// by instruction id.
type Relay struct {
	chain     ChainID
	store     kv.Store
	sender    Sender
	signer    Signer
	executor  swap.Executor
	settle    SettleFunc
	breaker   *circuit.Breaker
	metrics   *metrics.Metrics
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
}

type RelayOption func(*Relay)

func WithSigner(s Signer) RelayOption {
	return func(r *Relay) { r.signer = s }
}

func WithExecutor(e swap.Executor) RelayOption {
	return func(r *Relay) { r.executor = e }
}

func WithSettle(fn SettleFunc) RelayOption {
	return func(r *Relay) { r.settle = fn }
}

func WithBreaker(b *circuit.Breaker) RelayOption {
	return func(r *Relay) { r.breaker = b }
}

func WithMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = logger }
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func NewRelay(chain ChainID, store kv.Store, sender Sender, opts ...RelayOption) (*Relay, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	r := &Relay{
		chain:     chain,
		store:     store,
		sender:    sender,
		logger:    slog.Default(),
		batchSize: 100,
		interval:  time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New("relay-" + string(chain))
	}
	return r, nil
}

// Run flushes on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.logger.WarnContext(ctx, "relay pass stopped early", "chain", r.chain, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Flush delivers pending entries in sequence order and returns how many were
// delivered. It stops at the first retryable failure so later entries never
// overtake an earlier one.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	defer r.reportPending(ctx)

	if !r.breaker.Allow() {
		return 0, nil
	}
	entries, err := Pending(ctx, r.store, r.batchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, e := range entries {
		err := r.deliver(ctx, e)
		switch {
		case err == nil:
			if err := MarkSent(ctx, r.store, e.Seq); err != nil {
				return delivered, err
			}
			delivered++
			r.metrics.IncDelivered(string(r.chain), string(e.Kind))
			if _, change := r.breaker.RecordSuccess(); change.Closed {
				r.logger.InfoContext(ctx, "relay circuit closed", "chain", r.chain)
				r.metrics.SetBreakerOpen(string(r.chain), false)
			}

		case permanentDelivery(err):
			r.logger.ErrorContext(ctx, "outbox entry is undeliverable, moving to dead letter",
				"chain", r.chain,
				"seq", e.Seq,
				"kind", e.Kind,
				"error", err,
			)
			if err := MoveToDeadLetter(ctx, r.store, e.Seq, err); err != nil {
				return delivered, err
			}
			r.metrics.IncDeadLettered(string(r.chain), string(e.Kind))

		default:
			r.metrics.IncDeliveryError(string(r.chain), string(e.Kind))
			if markErr := MarkFailed(ctx, r.store, e.Seq, err); markErr != nil {
				r.logger.ErrorContext(ctx, "failed to record delivery attempt", "seq", e.Seq, "error", markErr)
			}
			if _, change := r.breaker.RecordFailure(); change.Opened {
				r.logger.WarnContext(ctx, "relay circuit opened", "chain", r.chain, "error", err)
				r.metrics.SetBreakerOpen(string(r.chain), true)
			}
			return delivered, fmt.Errorf("deliver seq %d: %w", e.Seq, err)
		}
	}
	return delivered, nil
}

func (r *Relay) deliver(ctx context.Context, e Entry) error {
	switch e.Kind {
	case KindBridge:
		env, err := Decode(e.Payload)
		if err != nil {
			return err
		}
		if r.signer != nil {
			if env.Proof, err = r.signer.Sign(env); err != nil {
				return fmt.Errorf("sign %s: %w", env.ID, err)
			}
		}
		if err := r.sender.Send(ctx, env); err != nil {
			return err
		}
		r.logger.DebugContext(ctx, "bridge message sent",
			"chain", r.chain,
			"message_id", env.ID,
			"action", env.Action.Tag(),
			"destination", env.Destination,
		)
		return nil

	case KindSwap:
		if r.executor == nil {
			return errNoExecutor
		}
		var in swap.Instruction
		if err := json.Unmarshal(e.Payload, &in); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		}
		quote, qerr := r.executor.Quote(ctx, in)
		if qerr != nil {
			r.logger.WarnContext(ctx, "swap quote unavailable",
				"chain", r.chain,
				"instruction_id", in.ID,
				"error", qerr,
			)
		}
		res, err := r.executor.Execute(ctx, in)
		if err != nil {
			return err
		}
		if r.settle != nil {
			if err := r.settle(ctx, in, res); err != nil {
				return fmt.Errorf("settle %s: %w", in.ID, err)
			}
		}
		if qerr == nil && res.Received.LessThan(quote.Return) {
			r.metrics.IncBelowQuote(string(r.chain), string(in.Direction))
			r.logger.WarnContext(ctx, "swap returned less than quoted",
				"chain", r.chain,
				"instruction_id", in.ID,
				"quoted", quote.Return,
				"received", res.Received,
			)
		}
		r.logger.DebugContext(ctx, "swap executed",
			"chain", r.chain,
			"instruction_id", in.ID,
			"direction", in.Direction,
			"offered", res.Offered,
			"received", res.Received,
		)
		return nil

	default:
		return fmt.Errorf("%w: outbox kind %q", ErrMalformedMessage, e.Kind)
	}
}

func permanentDelivery(err error) bool {
	return errors.Is(err, ErrMalformedMessage) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, errNoExecutor) ||
		errors.Is(err, swap.ErrInvalidInstruction) ||
		errors.Is(err, swap.ErrInsufficientFunds)
}

func (r *Relay) reportPending(ctx context.Context) {
	if r.metrics == nil {
		return
	}
	if n, err := PendingCount(ctx, r.store); err == nil {
		r.metrics.SetPending(string(r.chain), n)
	}
}

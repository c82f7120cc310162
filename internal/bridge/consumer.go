package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skimvault/internal/bridge/metrics"
	dErrors "skimvault/pkg/domain-errors"
)

// Consumer feeds inbound envelopes for one chain to a ledger handler.
// Transient handler failures are retried with exponential backoff until they
// succeed or ctx ends; permanent ones are logged and dropped.
type Consumer struct {
	chain      ChainID
	transport  Transport
	handler    Handler
	logger     *slog.Logger
	metrics    *metrics.Metrics
	minBackoff time.Duration
	maxBackoff time.Duration
}

type ConsumerOption func(*Consumer)

func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = logger }
}

func WithConsumerMetrics(m *metrics.Metrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

func WithBackoff(lo, hi time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if lo > 0 && hi >= lo {
			c.minBackoff, c.maxBackoff = lo, hi
		}
	}
}

func NewConsumer(chain ChainID, transport Transport, handler Handler, opts ...ConsumerOption) (*Consumer, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	c := &Consumer{
		chain:      chain,
		transport:  transport,
		handler:    handler,
		logger:     slog.Default(),
		minBackoff: 100 * time.Millisecond,
		maxBackoff: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Consumer) Run(ctx context.Context) error {
	return c.transport.Receive(ctx, c.chain, c.Handle)
}

// Handle applies one envelope. It only returns an error when ctx ended.
func (c *Consumer) Handle(ctx context.Context, env Envelope) error {
	tag := string(env.Action.Tag())
	if env.Destination != c.chain {
		c.logger.WarnContext(ctx, "dropping message for another chain",
			"chain", c.chain,
			"destination", env.Destination,
			"message_id", env.ID,
		)
		c.metrics.IncInbound(string(c.chain), tag, "dropped")
		return nil
	}

	backoff := c.minBackoff
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, env)
		if err == nil {
			c.metrics.IncInbound(string(c.chain), tag, "applied")
			return nil
		}
		if IsPermanent(err) {
			outcome := "dropped"
			if _, ok := dErrors.As(err); ok || errors.Is(err, ErrRejected) {
				outcome = "rejected"
			}
			c.logger.WarnContext(ctx, "inbound message not applied",
				"chain", c.chain,
				"message_id", env.ID,
				"action", tag,
				"outcome", outcome,
				"error", err,
			)
			c.metrics.IncInbound(string(c.chain), tag, outcome)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.WarnContext(ctx, "inbound message failed, retrying",
			"chain", c.chain,
			"message_id", env.ID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		c.metrics.IncRetry(string(c.chain))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

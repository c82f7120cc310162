package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"skimvault/pkg/requestcontext"
)

// Publisher buffers events in memory and appends them to a Store from a
// single background worker. When the buffer is full new events are dropped
// and counted; ledger calls never wait on the audit store.
type Publisher struct {
	store   Store
	events  chan Event
	logger  *slog.Logger
	now     func() time.Time
	dropped prometheus.Counter
	failed  prometheus.Counter
}

var _ Emitter = (*Publisher)(nil)

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.events = make(chan Event, n)
		}
	}
}

// WithMetrics registers dropped and failed event counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Publisher) {
		factory := promauto.With(reg)
		p.dropped = factory.NewCounter(prometheus.CounterOpts{
			Name: "skimvault_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		})
		p.failed = factory.NewCounter(prometheus.CounterOpts{
			Name: "skimvault_audit_events_failed_total",
			Help: "Audit events the store refused",
		})
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		events: make(chan Event, 1024),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps e with time, category and request id and queues it.
func (p *Publisher) Emit(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = p.now().UTC()
	}
	if e.Category == "" {
		e.Category = e.Action.Category()
	}
	if e.RequestID == "" {
		e.RequestID = requestcontext.RequestID(ctx)
	}
	select {
	case p.events <- e:
	default:
		if p.dropped != nil {
			p.dropped.Inc()
		}
		p.logger.WarnContext(ctx, "audit buffer full, event dropped", "action", e.Action, "ledger", e.Ledger)
	}
}

// Run appends queued events until ctx ends, then drains what is left.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case e := <-p.events:
			p.append(ctx, e)
		case <-ctx.Done():
			p.drain()
			return nil
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-p.events:
			p.append(ctx, e)
		default:
			return
		}
	}
}

func (p *Publisher) append(ctx context.Context, e Event) {
	if err := p.store.Append(ctx, e); err != nil {
		if p.failed != nil {
			p.failed.Inc()
		}
		p.logger.ErrorContext(ctx, "failed to append audit event", "action", e.Action, "error", err)
	}
}

// Pending reports how many events wait in the buffer.
func (p *Publisher) Pending() int {
	return len(p.events)
}

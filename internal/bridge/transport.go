package bridge

//go:generate mockgen -source=transport.go -destination=mocks/mocks.go -package=mocks Sender,Transport,Signer,Verifier

import (
	"context"
	"fmt"
	"sync"
)

// Sender hands a signed envelope to the network. A nil error means the
// transport accepted it, not that the destination applied it.
type Sender interface {
	Send(ctx context.Context, env Envelope) error
}

// Handler processes one inbound envelope.
type Handler func(ctx context.Context, env Envelope) error

// Transport moves envelopes between chains. Receive blocks, delivering
// envelopes addressed to chain until ctx is cancelled or the handler fails.
type Transport interface {
	Sender
	Receive(ctx context.Context, chain ChainID, h Handler) error
}

// Signer attaches a provenance proof to an outgoing envelope.
type Signer interface {
	Sign(env Envelope) (string, error)
}

// Verifier checks the provenance proof of an inbound envelope and returns
// ErrInvalidProof (wrapped) when it does not hold.
type Verifier interface {
	Verify(env Envelope) error
}

// Loopback is an in-process transport for single-binary deployments and
// tests. Each destination chain gets a buffered queue.
type Loopback struct {
	mu     sync.Mutex
	size   int
	queues map[ChainID]chan Envelope
}

var _ Transport = (*Loopback)(nil)

func NewLoopback(buffer int) *Loopback {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loopback{size: buffer, queues: make(map[ChainID]chan Envelope)}
}

func (l *Loopback) queue(chain ChainID) chan Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, ok := l.queues[chain]
	if !ok {
		q = make(chan Envelope, l.size)
		l.queues[chain] = q
	}
	return q
}

func (l *Loopback) Send(ctx context.Context, env Envelope) error {
	if env.Destination == "" {
		return fmt.Errorf("%w: no destination", ErrMalformedMessage)
	}
	select {
	case l.queue(env.Destination) <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loopback) Receive(ctx context.Context, chain ChainID, h Handler) error {
	q := l.queue(chain)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-q:
			if err := h(ctx, env); err != nil {
				return err
			}
		}
	}
}

// Len reports envelopes queued for chain and not yet received.
func (l *Loopback) Len(chain ChainID) int {
	return len(l.queue(chain))
}

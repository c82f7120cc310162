package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers both directions of the bridge. One instance is shared by
// every relay and consumer in the process; series are labelled by chain.
type Metrics struct {
	OutboxPending  *prometheus.GaugeVec
	Delivered      *prometheus.CounterVec
	DeliveryErrors *prometheus.CounterVec
	DeadLettered   *prometheus.CounterVec
	BreakerOpen    *prometheus.GaugeVec
	Inbound        *prometheus.CounterVec
	Duplicates     *prometheus.CounterVec
	InboundRetries *prometheus.CounterVec
	BelowQuote     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OutboxPending: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "skimvault_bridge_outbox_pending",
			Help: "Outbox entries not yet delivered",
		}, []string{"chain"}),
		Delivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skimvault_bridge_delivered_total",
			Help: "Outbox entries handed off successfully by kind",
		}, []string{"chain", "kind"}),
		DeliveryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skimvault_bridge_delivery_errors_total",
			Help: "Failed outbox hand-off attempts by kind",
		}, []string{"chain", "kind"}),
		DeadLettered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skimvault_bridge_dead_lettered_total",
			Help: "Outbox entries parked as undeliverable",
		}, []string{"chain", "kind"}),
		BreakerOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "skimvault_bridge_circuit_open",
			Help: "Relay circuit breaker state (0=closed, 1=open)",
		}, []string{"chain"}),
		Inbound: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skimvault_bridge_inbound_total",
			Help: "Inbound messages by action and outcome",
		}, []string{"chain", "action", "outcome"}), // outcome: applied, rejected, dropped
		Duplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skimvault_bridge_duplicates_total",
			Help: "Inbound messages ignored because their id was already handled",
		}, []string{"chain"}),
		InboundRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skimvault_bridge_inbound_retries_total",
			Help: "Inbound handler retries after transient failures",
		}, []string{"chain"}),
		BelowQuote: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skimvault_bridge_swaps_below_quote_total",
			Help: "Executed swaps that returned less than the router quoted",
		}, []string{"chain", "direction"}),
	}
}

func (m *Metrics) SetPending(chain string, n int) {
	if m != nil {
		m.OutboxPending.WithLabelValues(chain).Set(float64(n))
	}
}

func (m *Metrics) IncDelivered(chain, kind string) {
	if m != nil {
		m.Delivered.WithLabelValues(chain, kind).Inc()
	}
}

func (m *Metrics) IncDeliveryError(chain, kind string) {
	if m != nil {
		m.DeliveryErrors.WithLabelValues(chain, kind).Inc()
	}
}

func (m *Metrics) IncDeadLettered(chain, kind string) {
	if m != nil {
		m.DeadLettered.WithLabelValues(chain, kind).Inc()
	}
}

func (m *Metrics) SetBreakerOpen(chain string, open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.WithLabelValues(chain).Set(1)
	} else {
		m.BreakerOpen.WithLabelValues(chain).Set(0)
	}
}

func (m *Metrics) IncInbound(chain, action, outcome string) {
	if m != nil {
		m.Inbound.WithLabelValues(chain, action, outcome).Inc()
	}
}

func (m *Metrics) IncDuplicate(chain string) {
	if m != nil {
		m.Duplicates.WithLabelValues(chain).Inc()
	}
}

func (m *Metrics) IncRetry(chain string) {
	if m != nil {
		m.InboundRetries.WithLabelValues(chain).Inc()
	}
}

func (m *Metrics) IncBelowQuote(chain, direction string) {
	if m != nil {
		m.BelowQuote.WithLabelValues(chain, direction).Inc()
	}
}

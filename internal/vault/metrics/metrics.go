package metrics

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"skimvault/pkg/domain"
)

// Metrics provides observability for the vault.
type Metrics struct {
	Deposits       *prometheus.CounterVec
	DepositedUnits prometheus.Counter
	Skims          *prometheus.CounterVec
	SkimmedUnits   prometheus.Counter
	NoYield        prometheus.Counter
	Unauthorized   *prometheus.CounterVec
	TotalPrincipal prometheus.Gauge
	InFlight       prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Deposits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skimvault_vault_deposits_total",
			Help: "Deposits recorded on the vault by source",
		}, []string{"source"}), // source: "local", "remote"
		DepositedUnits: factory.NewCounter(prometheus.CounterOpts{
			Name: "skimvault_vault_deposited_base_units_total",
			Help: "Principal base units deposited",
		}),
		Skims: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skimvault_vault_skims_total",
			Help: "Successful yield skims by trigger",
		}, []string{"trigger"}), // trigger: "local", "remote"
		SkimmedUnits: factory.NewCounter(prometheus.CounterOpts{
			Name: "skimvault_vault_skimmed_base_units_total",
			Help: "Yield token base units skimmed",
		}),
		NoYield: factory.NewCounter(prometheus.CounterOpts{
			Name: "skimvault_vault_skim_no_yield_total",
			Help: "Skim attempts that found no yield",
		}),
		Unauthorized: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skimvault_vault_unauthorized_total",
			Help: "Calls rejected by an authorization check",
		}, []string{"operation"}),
		TotalPrincipal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skimvault_vault_total_principal_base_units",
			Help: "Aggregate principal held by the vault",
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skimvault_vault_inflight_base_units",
			Help: "Skimmed yield awaiting swap settlement",
		}),
	}
}

func units(a domain.Amount) float64 {
	f, _ := new(big.Float).SetInt(a.Big()).Float64()
	return f
}

func (m *Metrics) IncDeposit(source string, amount, total domain.Amount) {
	if m == nil {
		return
	}
	m.Deposits.WithLabelValues(source).Inc()
	m.DepositedUnits.Add(units(amount))
	m.TotalPrincipal.Set(units(total))
}

func (m *Metrics) IncSkim(trigger string, amount domain.Amount) {
	if m == nil {
		return
	}
	m.Skims.WithLabelValues(trigger).Inc()
	m.SkimmedUnits.Add(units(amount))
}

func (m *Metrics) IncNoYield() {
	if m != nil {
		m.NoYield.Inc()
	}
}

func (m *Metrics) IncUnauthorized(operation string) {
	if m != nil {
		m.Unauthorized.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) SetInFlight(a domain.Amount) {
	if m != nil {
		m.InFlight.Set(units(a))
	}
}

// Package yieldledger is the chain A ledger: stable balances per principal,
// a pooled yield accumulator, and batch conversion of that pool into the
// converted asset once it crosses a threshold.
//
// Every mutating call runs in one kv.Store Update, so balances, counters,
// inbox markers and outbound bridge messages commit together or not at all.
// Failures are reported as domain errors; nothing is silently ignored.
package yieldledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"skimvault/internal/bridge"
	"skimvault/internal/conversion"
	"skimvault/internal/gate"
	"skimvault/internal/kv"
	"skimvault/internal/pricing"
	"skimvault/internal/yieldledger/metrics"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
	"skimvault/pkg/platform/audit"
)

// Route identifies this ledger and its peer on the bridge.
type Route struct {
	Self   bridge.ChainID
	Remote bridge.ChainID
	// Origin is this ledger's contract identity on outbound messages.
	Origin string
}

type Service struct {
	store     kv.Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	threshold domain.Amount
	route     *Route
	verifier  bridge.Verifier
	audit     audit.Emitter
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithThreshold sets the threshold written at instantiation when the request
// leaves it zero.
func WithThreshold(t domain.Amount) Option {
	return func(s *Service) { s.threshold = t }
}

// WithOutbox enables outbound bridge messages over route.
func WithOutbox(route Route) Option {
	return func(s *Service) { s.route = &route }
}

// WithProvenance sets the verifier for inbound bridge messages. Without it
// ApplyRemote refuses every message.
func WithProvenance(v bridge.Verifier) Option {
	return func(s *Service) { s.verifier = v }
}

// WithAudit sends an event for every committed operation and every refusal.
func WithAudit(e audit.Emitter) Option {
	return func(s *Service) { s.audit = e }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(store kv.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	s := &Service{
		store:     store,
		logger:    slog.Default(),
		tracer:    otel.Tracer("skimvault/yieldledger"),
		threshold: DefaultThreshold,
		audit:     audit.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "yieldledger."+name, trace.WithAttributes(attrs...))
}

// storeErr translates storage failures; domain errors pass through.
func storeErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, domain.ErrAmountOverflow) {
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "amount overflow")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) record(ctx context.Context, e audit.Event) {
	e.Ledger = "yield"
	s.audit.Emit(ctx, e)
}

func (s *Service) refused(ctx context.Context, op string, caller domain.Principal, subject string) {
	s.metrics.IncUnauthorized(op)
	s.record(ctx, audit.Event{Action: audit.ActionAccessDenied, Actor: caller.String(), Subject: subject, Reason: op})
}

func requireInstantiated(r kv.Reader) (domain.Principal, error) {
	adm, found, err := loadAdmin(r)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errNotInstantiated
	}
	return adm, nil
}

// Instantiate writes the initial admin, config, threshold and rate.
func (s *Service) Instantiate(ctx context.Context, req InstantiateRequest) error {
	if req.Admin.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "admin is required")
	}
	threshold := req.Threshold
	if threshold.IsZero() {
		threshold = s.threshold
	}
	if threshold.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "threshold must be greater than zero")
	}
	rt := req.Rate
	if rt == 0 {
		rt = pricing.DefaultRate
	}

	err := s.store.Update(ctx, func(tx kv.Txn) error {
		if _, found, err := loadAdmin(tx); err != nil {
			return err
		} else if found {
			return dErrors.New(dErrors.CodeConflict, "ledger already instantiated")
		}
		if err := kv.PutJSON(tx, bucketMeta, keyAdmin, req.Admin); err != nil {
			return err
		}
		if err := kv.PutJSON(tx, bucketMeta, keyConfig, req.Config); err != nil {
			return err
		}
		if err := kv.PutJSON(tx, bucketMeta, keyThreshold, threshold); err != nil {
			return err
		}
		if err := kv.PutJSON(tx, bucketMeta, keyRate, rt); err != nil {
			return err
		}
		for _, key := range []string{keyAccumulator, keyTotalConverted, keyDust} {
			if err := kv.PutJSON(tx, bucketMeta, key, domain.Zero); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr(err, "failed to instantiate ledger")
	}
	s.logger.InfoContext(ctx, "yield ledger instantiated",
		"admin", req.Admin,
		"threshold", threshold,
		"rate", rt,
	)
	return nil
}

// Deposit credits caller's own balance and the accumulator, then attempts a
// batch conversion in the same transaction.
func (s *Service) Deposit(ctx context.Context, caller domain.Principal, amount domain.Amount) (DepositResult, error) {
	ctx, span := s.span(ctx, "deposit", attribute.String("principal", caller.String()))
	defer span.End()

	if caller.IsZero() {
		return DepositResult{}, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if amount.IsZero() {
		return DepositResult{}, errZeroAmount
	}

	var res DepositResult
	err := s.store.Update(ctx, func(tx kv.Txn) error {
		if _, err := requireInstantiated(tx); err != nil {
			return err
		}
		var err error
		res, err = s.credit(tx, caller, amount)
		return err
	})
	if err != nil {
		return DepositResult{}, storeErr(err, "failed to record deposit")
	}

	s.metrics.IncDeposit("local", amount)
	s.record(ctx, audit.Event{Action: audit.ActionDeposit, Actor: caller.String(), Subject: caller.String(), Amount: amount.String()})
	s.observeConversion(ctx, res.Conversion)
	s.logger.InfoContext(ctx, "deposit credited",
		"principal", caller,
		"amount", amount,
		"balance", res.Balance,
		"converted", res.Conversion.Triggered,
	)
	return res, nil
}

// credit is the shared deposit path for local and bridged deposits.
func (s *Service) credit(tx kv.Txn, principal domain.Principal, amount domain.Amount) (DepositResult, error) {
	balance, err := addAmount(tx, bucketBalances, principal.String(), amount)
	if err != nil {
		return DepositResult{}, err
	}
	if _, err := addAmount(tx, bucketMeta, keyAccumulator, amount); err != nil {
		return DepositResult{}, err
	}
	conv, err := s.convert(tx)
	if err != nil {
		return DepositResult{}, err
	}
	return DepositResult{Principal: principal, Balance: balance, Conversion: conv}, nil
}

// ConvertYield runs a batch conversion if the accumulator reached the
// threshold. Below threshold it changes nothing.
func (s *Service) ConvertYield(ctx context.Context) (ConversionResult, error) {
	ctx, span := s.span(ctx, "convert_yield")
	defer span.End()

	var res ConversionResult
	err := s.store.Update(ctx, func(tx kv.Txn) error {
		if _, err := requireInstantiated(tx); err != nil {
			return err
		}
		var err error
		res, err = s.convert(tx)
		return err
	})
	if err != nil {
		return ConversionResult{}, storeErr(err, "failed to convert yield")
	}
	s.observeConversion(ctx, res)
	return res, nil
}

// convert captures the accumulator, converts it at the stored rate and
// distributes the proceeds pro rata to a balance snapshot. The accumulator is
// reset in the same transaction as the distribution.
func (s *Service) convert(tx kv.Txn) (ConversionResult, error) {
	acc, err := amountAt(tx, bucketMeta, keyAccumulator)
	if err != nil {
		return ConversionResult{}, err
	}
	threshold, err := amountAt(tx, bucketMeta, keyThreshold)
	if err != nil {
		return ConversionResult{}, err
	}
	res := ConversionResult{Accumulator: acc, Threshold: threshold}
	if acc.LessThan(threshold) || acc.IsZero() {
		return res, nil
	}

	holdings, err := snapshot(tx)
	if err != nil {
		return ConversionResult{}, err
	}
	rt, err := rate(tx)
	if err != nil {
		return ConversionResult{}, err
	}
	produced, err := pricing.Convert(acc, rt)
	if err != nil {
		return ConversionResult{}, err
	}
	dist, err := conversion.Distribute(holdings, produced, acc)
	if err != nil {
		return ConversionResult{}, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "distribution failed")
	}

	for _, share := range dist.Shares {
		if _, err := addAmount(tx, bucketConverted, share.Principal.String(), share.Amount); err != nil {
			return ConversionResult{}, err
		}
	}
	if err := kv.PutJSON(tx, bucketMeta, keyAccumulator, domain.Zero); err != nil {
		return ConversionResult{}, err
	}
	if _, err := addAmount(tx, bucketMeta, keyTotalConverted, produced); err != nil {
		return ConversionResult{}, err
	}
	if _, err := addAmount(tx, bucketMeta, keyDust, dist.Dust); err != nil {
		return ConversionResult{}, err
	}

	res.Triggered = true
	res.Accumulator = domain.Zero
	res.Converted = acc
	res.Rate = rt
	res.Distribution = &dist
	return res, nil
}

func (s *Service) observeConversion(ctx context.Context, res ConversionResult) {
	s.metrics.SetAccumulator(res.Accumulator)
	if !res.Triggered {
		return
	}
	s.metrics.IncConversion("batch", res.Distribution.Produced, res.Distribution.Dust)
	s.record(ctx, audit.Event{Action: audit.ActionBatchConversion, Amount: res.Converted.String()})
	s.logger.InfoContext(ctx, "batch conversion applied",
		"converted_stable", res.Converted,
		"produced", res.Distribution.Produced,
		"distributed", res.Distribution.Distributed,
		"dust", res.Distribution.Dust,
		"holders", len(res.Distribution.Shares),
	)
}

// ManualConversion converts part of principal's own balance immediately,
// outside the pooled path.
func (s *Service) ManualConversion(ctx context.Context, caller, principal domain.Principal, amount domain.Amount) (ManualConversionResult, error) {
	ctx, span := s.span(ctx, "manual_conversion", attribute.String("principal", principal.String()))
	defer span.End()

	if err := gate.Self(caller, principal); err != nil {
		s.refused(ctx, "manual_conversion", caller, principal.String())
		s.logger.WarnContext(ctx, "manual conversion refused", "caller", caller, "principal", principal)
		return ManualConversionResult{}, err
	}
	if amount.IsZero() {
		return ManualConversionResult{}, errZeroAmount
	}

	var res ManualConversionResult
	err := s.store.Update(ctx, func(tx kv.Txn) error {
		if _, err := requireInstantiated(tx); err != nil {
			return err
		}
		balance, err := amountAt(tx, bucketBalances, principal.String())
		if err != nil {
			return err
		}
		if balance.LessThan(amount) {
			return dErrors.New(dErrors.CodeInsufficientBalance,
				fmt.Sprintf("balance %s is less than %s", balance, amount))
		}
		remaining, err := balance.Sub(amount)
		if err != nil {
			return err
		}
		if err := kv.PutJSON(tx, bucketBalances, principal.String(), remaining); err != nil {
			return err
		}

		rt, err := rate(tx)
		if err != nil {
			return err
		}
		credited, err := pricing.Convert(amount, rt)
		if err != nil {
			return err
		}
		converted, err := addAmount(tx, bucketConverted, principal.String(), credited)
		if err != nil {
			return err
		}
		if _, err := addAmount(tx, bucketMeta, keyTotalConverted, credited); err != nil {
			return err
		}
		res = ManualConversionResult{
			Principal: principal,
			Debited:   amount,
			Credited:  credited,
			Balance:   remaining,
			Converted: converted,
		}
		return nil
	})
	if err != nil {
		return ManualConversionResult{}, storeErr(err, "failed to convert balance")
	}

	s.metrics.IncConversion("manual", res.Credited, domain.Zero)
	s.record(ctx, audit.Event{Action: audit.ActionManualConversion, Actor: caller.String(), Subject: principal.String(), Amount: res.Debited.String()})
	s.logger.InfoContext(ctx, "manual conversion applied",
		"principal", principal,
		"debited", res.Debited,
		"credited", res.Credited,
	)
	return res, nil
}

// EmergencyWithdraw removes principal's balance and converted balance and
// returns what was removed. Calling it again returns zeros.
func (s *Service) EmergencyWithdraw(ctx context.Context, caller, principal domain.Principal) (WithdrawResult, error) {
	ctx, span := s.span(ctx, "emergency_withdraw", attribute.String("principal", principal.String()))
	defer span.End()

	if err := gate.Self(caller, principal); err != nil {
		s.refused(ctx, "emergency_withdraw", caller, principal.String())
		s.logger.WarnContext(ctx, "emergency withdrawal refused", "caller", caller, "principal", principal)
		return WithdrawResult{}, err
	}

	res := WithdrawResult{Principal: principal}
	err := s.store.Update(ctx, func(tx kv.Txn) error {
		if _, err := requireInstantiated(tx); err != nil {
			return err
		}
		var err error
		if res.Balance, err = amountAt(tx, bucketBalances, principal.String()); err != nil {
			return err
		}
		if res.Converted, err = amountAt(tx, bucketConverted, principal.String()); err != nil {
			return err
		}
		if err := tx.Delete(bucketBalances, principal.String()); err != nil {
			return err
		}
		return tx.Delete(bucketConverted, principal.String())
	})
	if err != nil {
		return WithdrawResult{}, storeErr(err, "failed to withdraw")
	}

	if !res.Balance.IsZero() || !res.Converted.IsZero() {
		s.metrics.IncWithdrawal()
		s.record(ctx, audit.Event{Action: audit.ActionEmergencyWithdraw, Actor: caller.String(), Subject: principal.String(), Amount: res.Balance.String()})
	}
	s.logger.InfoContext(ctx, "emergency withdrawal",
		"principal", principal,
		"balance", res.Balance,
		"converted", res.Converted,
	)
	return res, nil
}

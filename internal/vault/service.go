// Package vault is the chain B ledger: it records deposited principal per
// address and realizes yield as whatever the vault holds of the yield token
// beyond total principal.
//
// The vault never moves tokens itself. Deposits and skims queue swap
// instructions and bridge messages in the outbox, in the same transaction as
// the bookkeeping change; the relay carries them out afterwards. A failed call
// queues nothing.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"skimvault/internal/bridge"
	"skimvault/internal/gate"
	"skimvault/internal/kv"
	"skimvault/internal/swap"
	"skimvault/internal/vault/metrics"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
	"skimvault/pkg/platform/audit"
)

// Route identifies the vault and the yield ledger on the bridge.
type Route struct {
	Self   bridge.ChainID
	Remote bridge.ChainID
}

type Service struct {
	store    kv.Store
	holdings Holdings
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    audit.Emitter
	tracer   trace.Tracer
	route    Route
	verifier bridge.Verifier
	prefix   string
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit sends committed operations and refusals to e.
func WithAudit(e audit.Emitter) Option {
	return func(s *Service) { s.audit = e }
}

// WithRoute overrides the default injective -> icp route.
func WithRoute(r Route) Option {
	return func(s *Service) { s.route = r }
}

// WithProvenance sets the verifier for inbound bridge messages. Without it
// ApplyRemote refuses every message.
func WithProvenance(v bridge.Verifier) Option {
	return func(s *Service) { s.verifier = v }
}

// WithAddressPrefix sets the bech32 prefix addresses must carry.
func WithAddressPrefix(prefix string) Option {
	return func(s *Service) { s.prefix = prefix }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(store kv.Store, holdings Holdings, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if holdings == nil {
		return nil, fmt.Errorf("holdings is required")
	}
	s := &Service{
		store:    store,
		holdings: holdings,
		logger:   slog.Default(),
		audit:    audit.Nop{},
		tracer:   otel.Tracer("skimvault/vault"),
		route:    Route{Self: "injective", Remote: "icp"},
		prefix:   domain.DefaultAddressPrefix,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "vault."+name, trace.WithAttributes(attrs...))
}

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

func (s *Service) address(raw, field string) (domain.Address, error) {
	a, err := domain.ParseAddress(raw, s.prefix)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidAddress, field+": invalid address")
	}
	return a, nil
}

// Instantiate validates and writes the config, the remote manager, a zero
// total principal and the contract version.
func (s *Service) Instantiate(ctx context.Context, req InstantiateRequest) error {
	self, err := s.address(req.Self.String(), "self")
	if err != nil {
		return err
	}
	manager, err := s.address(req.RemoteManager.String(), "remote_manager")
	if err != nil {
		return err
	}
	cfg, err := req.Config.Validate(s.prefix)
	if err != nil {
		return err
	}

	err = s.store.Update(ctx, func(tx kv.Txn) error {
		if _, found, err := kv.GetJSON[domain.Address](tx, bucketMeta, keySelf); err != nil {
			return err
		} else if found {
			return dErrors.New(dErrors.CodeConflict, "vault already instantiated")
		}
		writes := []struct {
			key   string
			value any
		}{
			{keySelf, self},
			{keyConfig, cfg},
			{keyManager, manager},
			{keyTotalPrincipal, domain.Zero},
			{keyContract, ContractInfo{Name: ContractName, Version: ContractVersion}},
		}
		for _, w := range writes {
			if err := kv.PutJSON(tx, bucketMeta, w.key, w.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr(err, "failed to instantiate vault")
	}
	s.logger.InfoContext(ctx, "vault instantiated",
		"self", self,
		"remote_manager", manager,
		"yield_token", cfg.YieldToken,
	)
	return nil
}

// Deposit records amount of principal for depositor and queues the swap of
// the deposited stable tokens into the yield token.
func (s *Service) Deposit(ctx context.Context, depositor domain.Address, amount domain.Amount) (Receipt, error) {
	ctx, span := s.span(ctx, "deposit", attribute.String("depositor", depositor.String()))
	defer span.End()

	depositor, err := s.address(depositor.String(), "depositor")
	if err != nil {
		return Receipt{}, err
	}
	if amount.IsZero() {
		return Receipt{}, errZeroAmount
	}

	var rc Receipt
	var total domain.Amount
	err = s.store.Update(ctx, func(tx kv.Txn) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		rc, total, err = s.deposit(tx, st, depositor, amount)
		return err
	})
	if err != nil {
		return Receipt{}, storeErr(err, "failed to record deposit")
	}
	s.metrics.IncDeposit("local", amount, total)
	s.record(ctx, audit.Event{Action: audit.ActionDeposit, Actor: depositor.String(), Subject: depositor.String(), Amount: amount.String()})
	s.logger.InfoContext(ctx, "deposit recorded",
		"depositor", depositor,
		"amount", amount,
		"total_principal", total,
	)
	return rc, nil
}

func (s *Service) deposit(tx kv.Txn, st state, depositor domain.Address, amount domain.Amount) (Receipt, domain.Amount, error) {
	if _, err := addAmount(tx, bucketPrincipal, depositor.String(), amount); err != nil {
		return Receipt{}, domain.Amount{}, err
	}
	total, err := addAmount(tx, bucketMeta, keyTotalPrincipal, amount)
	if err != nil {
		return Receipt{}, domain.Amount{}, err
	}
	in := swap.Instruction{
		ID:         s.newID(),
		Direction:  swap.StableToYield,
		Amount:     amount,
		OfferToken: st.config.StableToken.String(),
		AskToken:   st.config.YieldToken.String(),
		Holder:     st.self.String(),
		Router:     st.config.Router.String(),
	}
	seq, err := bridge.Enqueue(tx, bridge.KindSwap, in, s.now())
	if err != nil {
		return Receipt{}, domain.Amount{}, err
	}

	rc := Receipt{Action: "deposit"}
	rc.attr("depositor", depositor.String())
	rc.attr("amount", amount.String())
	rc.Messages = append(rc.Messages, Message{Seq: seq, Kind: bridge.KindSwap, Swap: &in})
	return rc, total, nil
}

// SkimYield realizes the vault's yield and forwards it to the configured
// yield collector on the yield ledger. Only the collector or the remote
// manager may call it.
func (s *Service) SkimYield(ctx context.Context, caller domain.Address) (Receipt, error) {
	ctx, span := s.span(ctx, "skim_yield")
	defer span.End()

	allowed := func(st state) error {
		return gate.AnyOf(caller, st.config.YieldCollector, st.manager)
	}
	var rc Receipt
	err := s.withHoldings(ctx, allowed, func(hr holdingsRead) error {
		return s.store.Update(ctx, func(tx kv.Txn) error {
			st, err := loadState(tx)
			if err != nil {
				return err
			}
			if err := allowed(st); err != nil {
				return err
			}
			rc, err = s.skim(tx, st, st.config.YieldCollector.String(), hr)
			return err
		})
	})
	if err != nil {
		s.observeRefusal(ctx, "skim_yield", caller, err)
		return Receipt{}, storeErr(err, "failed to skim yield")
	}
	s.observeSkim(ctx, "local", rc)
	return rc, nil
}

// skim computes yield as holdings minus total principal minus yield already
// committed to pending swaps. It queues the swap back to the stable token and
// the forwarded deposit to recipient on the yield ledger. hr must have been
// read before tx began.
func (s *Service) skim(tx kv.Txn, st state, recipient string, hr holdingsRead) (Receipt, error) {
	held, err := hr.current(tx, st)
	if err != nil {
		return Receipt{}, err
	}
	principal, err := amountAt(tx, bucketMeta, keyTotalPrincipal)
	if err != nil {
		return Receipt{}, err
	}
	pending, err := sumInflight(tx)
	if err != nil {
		return Receipt{}, err
	}
	committed, err := principal.Add(pending)
	if err != nil {
		return Receipt{}, err
	}
	if !committed.LessThan(held) {
		return Receipt{}, errNoYield
	}
	yield, err := held.Sub(committed)
	if err != nil {
		return Receipt{}, err
	}

	in := swap.Instruction{
		ID:         s.newID(),
		Direction:  swap.YieldToStable,
		Amount:     yield,
		OfferToken: st.config.YieldToken.String(),
		AskToken:   st.config.StableToken.String(),
		Holder:     st.self.String(),
		Router:     st.config.Router.String(),
	}
	swapSeq, err := bridge.Enqueue(tx, bridge.KindSwap, in, s.now())
	if err != nil {
		return Receipt{}, err
	}
	if err := kv.PutJSON(tx, bucketInflight, in.ID, inflight{Amount: yield, Recipient: recipient}); err != nil {
		return Receipt{}, err
	}

	env, err := bridge.NewEnvelope(s.route.Self, s.route.Remote, st.self.String(),
		bridge.ForwardDeposit{Recipient: recipient, Amount: yield}, s.now())
	if err != nil {
		return Receipt{}, err
	}
	envSeq, err := bridge.EnqueueEnvelope(tx, env, s.now())
	if err != nil {
		return Receipt{}, err
	}

	rc := Receipt{Action: "skim_yield"}
	rc.attr("yield_amount", yield.String())
	rc.attr("recipient", recipient)
	rc.Messages = append(rc.Messages,
		Message{Seq: swapSeq, Kind: bridge.KindSwap, Swap: &in},
		Message{Seq: envSeq, Kind: bridge.KindBridge, Bridge: &env},
	)
	return rc, nil
}

func (s *Service) record(ctx context.Context, e audit.Event) {
	e.Ledger = "vault"
	s.audit.Emit(ctx, e)
}

func (s *Service) observeSkim(ctx context.Context, trigger string, rc Receipt) {
	raw, _ := rc.Attr("yield_amount")
	yield, err := domain.ParseAmount(raw)
	if err != nil {
		return
	}
	s.metrics.IncSkim(trigger, yield)
	if pending, err := s.InFlight(ctx); err == nil {
		s.metrics.SetInFlight(pending)
	}
	recipient, _ := rc.Attr("recipient")
	s.record(ctx, audit.Event{Action: audit.ActionSkim, Subject: recipient, Amount: yield.String(), Reason: trigger})
	s.logger.InfoContext(ctx, "yield skimmed",
		"trigger", trigger,
		"yield_amount", yield,
		"recipient", recipient,
	)
}

func (s *Service) observeRefusal(ctx context.Context, op string, caller domain.Address, err error) {
	switch {
	case dErrors.HasCode(err, dErrors.CodeUnauthorized):
		s.metrics.IncUnauthorized(op)
		s.record(ctx, audit.Event{Action: audit.ActionAccessDenied, Actor: caller.String(), Reason: op})
		s.logger.WarnContext(ctx, "vault operation refused", "operation", op, "caller", caller)
	case dErrors.HasCode(err, dErrors.CodeNoYieldAvailable):
		s.metrics.IncNoYield()
		s.logger.InfoContext(ctx, "skim found no yield", "operation", op)
	}
}

// ExecuteFromRemote runs an action on behalf of the yield ledger. Only the
// remote manager may call it.
func (s *Service) ExecuteFromRemote(ctx context.Context, caller domain.Address, action bridge.Action) (Receipt, error) {
	ctx, span := s.span(ctx, "execute_from_remote")
	defer span.End()

	if action == nil {
		return Receipt{}, dErrors.New(dErrors.CodeBadRequest, "action is required")
	}
	var rc Receipt
	err := s.runRemote(ctx, caller, action, func(hr holdingsRead) error {
		return s.store.Update(ctx, func(tx kv.Txn) error {
			var err error
			rc, err = s.executeRemote(tx, caller, action, hr)
			return err
		})
	})
	if err != nil {
		s.observeRefusal(ctx, "execute_from_remote", caller, err)
		return Receipt{}, storeErr(err, "failed to execute remote action")
	}
	s.observeRemote(ctx, rc)
	s.record(ctx, audit.Event{Action: audit.ActionRemoteApplied, Actor: caller.String(), Subject: rc.Action})
	return rc, nil
}

func (s *Service) executeRemote(tx kv.Txn, caller domain.Address, action bridge.Action, hr holdingsRead) (Receipt, error) {
	st, err := loadState(tx)
	if err != nil {
		return Receipt{}, err
	}
	if err := gate.Holder(caller, st.manager, "remote manager"); err != nil {
		return Receipt{}, err
	}

	switch a := action.(type) {
	case bridge.ForwardDeposit:
		depositor, err := s.address(a.Recipient, "depositor")
		if err != nil {
			return Receipt{}, err
		}
		if a.Amount.IsZero() {
			return Receipt{}, errZeroAmount
		}
		rc, _, err := s.deposit(tx, st, depositor, a.Amount)
		return rc, err

	case bridge.ForwardSkim:
		if a.Recipient == "" {
			return Receipt{}, dErrors.New(dErrors.CodeValidation, "recipient is required")
		}
		return s.skim(tx, st, a.Recipient, hr)

	case bridge.ReplaceConfig:
		cfg, err := decodeConfig(a.Config, s.prefix)
		if err != nil {
			return Receipt{}, err
		}
		if err := kv.PutJSON(tx, bucketMeta, keyConfig, cfg); err != nil {
			return Receipt{}, err
		}
		rc := Receipt{Action: "replace_config"}
		rc.attr("yield_token", cfg.YieldToken.String())
		rc.attr("yield_collector", cfg.YieldCollector.String())
		return rc, nil

	default:
		return Receipt{}, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("action %s cannot be executed by the vault", action.Tag()))
	}
}

func (s *Service) observeRemote(ctx context.Context, rc Receipt) {
	switch rc.Action {
	case "deposit":
		raw, _ := rc.Attr("amount")
		amount, _ := domain.ParseAmount(raw)
		total, _ := s.TotalPrincipal(ctx)
		s.metrics.IncDeposit("remote", amount, total)
		s.logger.InfoContext(ctx, "remote deposit recorded", "amount", amount)
	case "skim_yield":
		s.observeSkim(ctx, "remote", rc)
	case "replace_config":
		s.logger.InfoContext(ctx, "vault config replaced")
	}
}

// SetRemoteManager hands the remote manager role to next. Only the current
// manager may.
func (s *Service) SetRemoteManager(ctx context.Context, caller, next domain.Address) error {
	next, err := s.address(next.String(), "remote_manager")
	if err != nil {
		return err
	}
	err = s.store.Update(ctx, func(tx kv.Txn) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		if err := gate.Holder(caller, st.manager, "remote manager"); err != nil {
			return err
		}
		return kv.PutJSON(tx, bucketMeta, keyManager, next)
	})
	if err != nil {
		s.observeRefusal(ctx, "set_remote_manager", caller, err)
		return storeErr(err, "failed to set remote manager")
	}
	s.record(ctx, audit.Event{Action: audit.ActionManagerRotated, Actor: caller.String(), Subject: next.String()})
	s.logger.InfoContext(ctx, "remote manager rotated", "previous", caller, "next", next)
	return nil
}

// SettleSwap releases the yield held back for an executed YieldToStable
// swap and bumps the settle count, which invalidates holdings read before
// it. The relay calls it after the executor succeeded; settling twice is
// harmless.
func (s *Service) SettleSwap(ctx context.Context, in swap.Instruction, res swap.Result) error {
	if in.Direction != swap.YieldToStable {
		return nil
	}
	var released bool
	err := s.store.Update(ctx, func(tx kv.Txn) error {
		_, found, err := kv.GetJSON[inflight](tx, bucketInflight, in.ID)
		if err != nil || !found {
			return err
		}
		released = true
		settled, _, err := kv.GetJSON[uint64](tx, bucketMeta, keySettled)
		if err != nil {
			return err
		}
		if err := kv.PutJSON(tx, bucketMeta, keySettled, settled+1); err != nil {
			return err
		}
		return tx.Delete(bucketInflight, in.ID)
	})
	if err != nil {
		return storeErr(err, "failed to settle swap")
	}
	if released {
		if pending, err := s.InFlight(ctx); err == nil {
			s.metrics.SetInFlight(pending)
		}
		s.logger.InfoContext(ctx, "skim swap settled",
			"instruction_id", in.ID,
			"offered", res.Offered,
			"received", res.Received,
		)
	}
	return nil
}

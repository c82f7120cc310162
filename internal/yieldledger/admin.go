package yieldledger

import (
	"context"
	"strconv"

	"skimvault/internal/bridge"
	"skimvault/internal/gate"
	"skimvault/internal/kv"
	"skimvault/internal/pricing"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
	"skimvault/pkg/platform/audit"
)

// asAdmin runs fn in an Update after checking caller holds the admin role.
func (s *Service) asAdmin(ctx context.Context, op string, caller domain.Principal, fn func(kv.Txn) error) error {
	err := s.store.Update(ctx, func(tx kv.Txn) error {
		adm, err := requireInstantiated(tx)
		if err != nil {
			return err
		}
		if err := gate.Holder(caller, adm, "admin"); err != nil {
			return err
		}
		return fn(tx)
	})
	if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
		s.refused(ctx, op, caller, "")
		s.logger.WarnContext(ctx, "admin operation refused", "operation", op, "caller", caller)
	}
	return storeErr(err, "failed to apply "+op)
}

// SetConfig replaces the configuration wholesale.
func (s *Service) SetConfig(ctx context.Context, caller domain.Principal, cfg Config) error {
	if err := s.asAdmin(ctx, "set_config", caller, func(tx kv.Txn) error {
		return kv.PutJSON(tx, bucketMeta, keyConfig, cfg)
	}); err != nil {
		return err
	}
	s.record(ctx, audit.Event{Action: audit.ActionConfigReplaced, Actor: caller.String()})
	s.logger.InfoContext(ctx, "ledger config replaced", "caller", caller)
	return nil
}

// SetPrice stores the USD-per-BTC rate used by conversions.
func (s *Service) SetPrice(ctx context.Context, caller domain.Principal, r pricing.Rate) error {
	if err := r.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "price must be greater than zero")
	}
	if err := s.asAdmin(ctx, "set_price", caller, func(tx kv.Txn) error {
		return kv.PutJSON(tx, bucketMeta, keyRate, r)
	}); err != nil {
		return err
	}
	s.record(ctx, audit.Event{Action: audit.ActionPriceSet, Actor: caller.String(), Amount: strconv.FormatUint(uint64(r), 10)})
	s.logger.InfoContext(ctx, "price updated", "rate", r, "caller", caller)
	return nil
}

// RotateAdmin hands the admin role to next. Only the current admin may.
func (s *Service) RotateAdmin(ctx context.Context, caller, next domain.Principal) error {
	if next.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "new admin is required")
	}
	if err := s.asAdmin(ctx, "rotate_admin", caller, func(tx kv.Txn) error {
		return kv.PutJSON(tx, bucketMeta, keyAdmin, next)
	}); err != nil {
		return err
	}
	s.record(ctx, audit.Event{Action: audit.ActionAdminRotated, Actor: caller.String(), Subject: next.String()})
	s.logger.InfoContext(ctx, "admin rotated", "previous", caller, "next", next)
	return nil
}

// RefreshPrice adopts the rate published by src. A failing source leaves the
// stored rate unchanged.
func (s *Service) RefreshPrice(ctx context.Context, src pricing.Source) (pricing.Rate, error) {
	r, err := src.Rate(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "price source unavailable")
	}
	err = s.store.Update(ctx, func(tx kv.Txn) error {
		if _, err := requireInstantiated(tx); err != nil {
			return err
		}
		cur, err := rate(tx)
		if err != nil || cur == r {
			return err
		}
		return kv.PutJSON(tx, bucketMeta, keyRate, r)
	})
	if err != nil {
		return 0, storeErr(err, "failed to store price")
	}
	return r, nil
}

// RequestSkim asks the vault to skim its yield and forward it to recipient
// (the configured yield collector when recipient is empty). The request is
// queued in the outbox; the outcome arrives later as a forwarded deposit.
func (s *Service) RequestSkim(ctx context.Context, caller, recipient domain.Principal) (bridge.Envelope, error) {
	if s.route == nil {
		return bridge.Envelope{}, dErrors.New(dErrors.CodeInternal, "bridge is not configured")
	}

	var env bridge.Envelope
	err := s.asAdmin(ctx, "request_skim", caller, func(tx kv.Txn) error {
		if recipient.IsZero() {
			cfg, _, err := kv.GetJSON[Config](tx, bucketMeta, keyConfig)
			if err != nil {
				return err
			}
			recipient = domain.Principal(cfg.YieldCollector)
		}
		if recipient.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "recipient is required when no yield collector is configured")
		}
		var err error
		env, err = bridge.NewEnvelope(s.route.Self, s.route.Remote, s.route.Origin,
			bridge.SkimYieldTrigger{Recipient: recipient.String()}, s.now())
		if err != nil {
			return err
		}
		_, err = bridge.EnqueueEnvelope(tx, env, s.now())
		return err
	})
	if err != nil {
		return bridge.Envelope{}, err
	}
	s.record(ctx, audit.Event{Action: audit.ActionSkimRequested, Actor: caller.String(), Subject: recipient.String(), MessageID: env.ID.String()})
	s.logger.InfoContext(ctx, "skim requested",
		"message_id", env.ID,
		"recipient", recipient,
		"destination", env.Destination,
	)
	return env, nil
}

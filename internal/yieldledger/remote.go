package yieldledger

import (
	"context"
	"errors"
	"fmt"

	"skimvault/internal/bridge"
	"skimvault/internal/kv"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
	"skimvault/pkg/platform/audit"
	"skimvault/pkg/platform/sentinel"
)

// ApplyRemote handles an inbound bridge message. Provenance is verified
// first; the message id is then checked against the inbox inside the same
// transaction as the credit, so redelivery is harmless.
//
// ForwardDeposit credits the recipient exactly like a local deposit,
// including the accumulator and a conversion attempt. Any other action is
// rejected and the rejection is remembered; redelivering a rejected message
// returns Duplicate with the recorded rejection wrapped in bridge.ErrRejected.
func (s *Service) ApplyRemote(ctx context.Context, env bridge.Envelope) (RemoteOutcome, error) {
	ctx, span := s.span(ctx, "apply_remote")
	defer span.End()

	out := RemoteOutcome{MessageID: env.ID}
	var (
		amount domain.Amount
		prior  error
	)
	if s.verifier == nil {
		return out, dErrors.New(dErrors.CodeInternal, "bridge provenance is not configured")
	}
	if err := s.verifier.Verify(env); err != nil {
		s.metrics.IncUnauthorized("apply_remote")
		s.logger.WarnContext(ctx, "bridge message failed provenance",
			"message_id", env.ID,
			"source", env.Source,
			"origin", env.Origin,
			"error", err,
		)
		return out, err
	}

	err := s.store.Update(ctx, func(tx kv.Txn) error {
		if _, err := requireInstantiated(tx); errors.Is(err, errNotInstantiated) {
			// Not a rejection: retry once the ledger is instantiated.
			return fmt.Errorf("yield ledger: %w", sentinel.ErrInvalidState)
		} else if err != nil {
			return err
		}
		if rec, seen, err := bridge.Seen(tx, env.ID); err != nil {
			return err
		} else if seen {
			out.Duplicate = true
			prior = rec.Err()
			return nil
		}

		fd, ok := env.Action.(bridge.ForwardDeposit)
		if !ok {
			return dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("action %s is not accepted by the yield ledger", env.Action.Tag()))
		}
		recipient, err := domain.ParsePrincipal(fd.Recipient)
		if err != nil {
			return err
		}
		amount = fd.Amount
		res, err := s.credit(tx, recipient, fd.Amount)
		if err != nil {
			return err
		}
		out.Deposit = &res
		return bridge.Record(tx, env, s.now(), nil)
	})
	if err != nil {
		err = storeErr(err, "failed to apply bridge message")
		if bridge.IsPermanent(err) {
			s.recordRejection(ctx, env, err)
		}
		return out, err
	}

	if out.Duplicate {
		s.logger.InfoContext(ctx, "duplicate bridge message ignored", "message_id", env.ID, "rejected", prior != nil)
		return out, prior
	}
	s.metrics.IncDeposit("bridge", amount)
	s.record(ctx, audit.Event{
		Action:    audit.ActionRemoteApplied,
		Actor:     env.Origin,
		Subject:   out.Deposit.Principal.String(),
		Amount:    amount.String(),
		MessageID: env.ID.String(),
	})
	s.observeConversion(ctx, out.Deposit.Conversion)
	s.logger.InfoContext(ctx, "forwarded deposit credited",
		"message_id", env.ID,
		"principal", out.Deposit.Principal,
		"balance", out.Deposit.Balance,
		"converted", out.Deposit.Conversion.Triggered,
	)
	return out, nil
}

// recordRejection remembers a rejected message after its transaction rolled
// back, unless a concurrent delivery already recorded it.
func (s *Service) recordRejection(ctx context.Context, env bridge.Envelope, cause error) {
	err := s.store.Update(ctx, func(tx kv.Txn) error {
		if _, seen, err := bridge.Seen(tx, env.ID); err != nil || seen {
			return err
		}
		return bridge.Record(tx, env, s.now(), cause)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record rejected bridge message", "message_id", env.ID, "error", err)
		return
	}
	s.record(ctx, audit.Event{Action: audit.ActionRemoteRejected, Actor: env.Origin, MessageID: env.ID.String(), Reason: cause.Error()})
	s.logger.WarnContext(ctx, "bridge message rejected", "message_id", env.ID, "action", env.Action.Tag(), "error", cause)
}

package vault

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

// ApplyRemote handles an inbound bridge message as relayer. Provenance is
// verified first; the inbox check, the action and the inbox record then
// share one transaction.
//
// SkimYieldTrigger runs as ForwardSkim. ForwardDeposit, ForwardSkim and
// ReplaceConfig run as themselves. relayer must hold the remote manager role.
func (s *Service) ApplyRemote(ctx context.Context, relayer domain.Address, env bridge.Envelope) (RemoteOutcome, error) {
	ctx, span := s.span(ctx, "apply_remote")
	defer span.End()

	out := RemoteOutcome{MessageID: env.ID}
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

	action := env.Action
	if t, ok := action.(bridge.SkimYieldTrigger); ok {
		action = bridge.ForwardSkim{Recipient: t.Recipient}
	}

	var (
		rc    Receipt
		prior error
	)
	err := s.runRemote(ctx, relayer, action, func(hr holdingsRead) error {
		return s.store.Update(ctx, func(tx kv.Txn) error {
			if _, err := loadState(tx); errors.Is(err, errNotInstantiated) {
				return fmt.Errorf("vault: %w", sentinel.ErrInvalidState)
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
			var err error
			if rc, err = s.executeRemote(tx, relayer, action, hr); err != nil {
				return err
			}
			return bridge.Record(tx, env, s.now(), nil)
		})
	})
	if err != nil {
		s.observeRefusal(ctx, "apply_remote", relayer, err)
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
	out.Receipt = &rc
	s.observeRemote(ctx, rc)
	s.record(ctx, audit.Event{
		Action:    audit.ActionRemoteApplied,
		Actor:     env.Origin,
		Subject:   rc.Action,
		MessageID: env.ID.String(),
	})
	return out, nil
}

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

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	audit "skimvault/pkg/platform/audit"
	txcontext "skimvault/pkg/platform/tx"
)

// Schema creates the audit_events table. Applied by
// internal/platform/postgres.Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          BIGSERIAL   PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	ledger      TEXT        NOT NULL,
	action      TEXT        NOT NULL,
	category    TEXT        NOT NULL,
	actor       TEXT        NOT NULL DEFAULT '',
	subject     TEXT        NOT NULL DEFAULT '',
	amount      TEXT        NOT NULL DEFAULT '',
	message_id  TEXT        NOT NULL DEFAULT '',
	reason      TEXT        NOT NULL DEFAULT '',
	request_id  TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_occurred_at_idx ON audit_events (occurred_at DESC);`

// Store appends audit events to Postgres. Inside a transaction carried by
// ctx the insert joins that transaction.
type Store struct {
	db *sql.DB
}

var _ audit.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, e audit.Event) error {
	category := e.Category
	if category == "" {
		category = e.Action.Category()
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (occurred_at, ledger, action, category, actor, subject, amount, message_id, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.Timestamp, e.Ledger, string(e.Action), string(category),
		e.Actor, e.Subject, e.Amount, e.MessageID, e.Reason, e.RequestID,
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, ledger, action, category, actor, subject, amount, message_id, reason, request_id
		FROM audit_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e                audit.Event
			action, category string
		)
		if err := rows.Scan(&e.Timestamp, &e.Ledger, &action, &category,
			&e.Actor, &e.Subject, &e.Amount, &e.MessageID, &e.Reason, &e.RequestID); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.Action = audit.Action(action)
		e.Category = audit.Category(category)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}
	return out, nil
}

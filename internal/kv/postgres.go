package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	txcontext "skimvault/pkg/platform/tx"
	"skimvault/pkg/platform/sentinel"
)

// Schema creates the table backing PostgresStore. Applied by
// internal/platform/postgres.Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	namespace  TEXT        NOT NULL,
	bucket     TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      BYTEA       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, bucket, key)
);`

// PostgresStore keeps one ledger's buckets in kv_entries under a namespace.
// Writers are serialized with a transaction-scoped advisory lock on the
// namespace, so several processes may share the database safely.
type PostgresStore struct {
	db        *sql.DB
	namespace string
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB, namespace string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("kv: database handle is required")
	}
	if namespace == "" {
		return nil, fmt.Errorf("kv: namespace is required")
	}
	return &PostgresStore{db: db, namespace: namespace}, nil
}

// Close is a no-op; the *sql.DB is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

func (s *PostgresStore) View(ctx context.Context, fn func(Reader) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	return txcontext.Run(ctx, s.db, opts, func(ctx context.Context, tx *sql.Tx) error {
		return fn(&pgTxn{ctx: ctx, tx: tx, namespace: s.namespace, readOnly: true})
	})
}

// Update runs fn in a serialized transaction. When ctx already carries a
// transaction (pkg/platform/tx), fn joins it and the caller owns the commit.
func (s *PostgresStore) Update(ctx context.Context, fn func(Txn) error) error {
	return txcontext.Run(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.lock(ctx, tx); err != nil {
			return err
		}
		return fn(&pgTxn{ctx: ctx, tx: tx, namespace: s.namespace})
	})
}

func (s *PostgresStore) lock(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, s.namespace); err != nil {
		return fmt.Errorf("kv: acquire ledger lock: %w", err)
	}
	return nil
}

type pgTxn struct {
	ctx       context.Context
	tx        *sql.Tx
	namespace string
	readOnly  bool
}

func (t *pgTxn) Get(bucket, key string) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT value FROM kv_entries WHERE namespace = $1 AND bucket = $2 AND key = $3`,
		t.namespace, bucket, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: get %s/%s: %w", bucket, key, err)
	}
	return value, nil
}

func (t *pgTxn) ForEach(bucket string, fn func(key string, value []byte) error) error {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT key, value FROM kv_entries WHERE namespace = $1 AND bucket = $2 ORDER BY key COLLATE "C"`,
		t.namespace, bucket,
	)
	if err != nil {
		return fmt.Errorf("kv: scan %s: %w", bucket, err)
	}

	// Drain before calling fn: lib/pq cannot run statements on a transaction
	// while a result set is open.
	type entry struct {
		key   string
		value []byte
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.key, &e.value); err != nil {
			_ = rows.Close()
			return fmt.Errorf("kv: scan %s row: %w", bucket, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("kv: scan %s: %w", bucket, err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("kv: scan %s: %w", bucket, err)
	}

	for _, e := range entries {
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTxn) Put(bucket, key string, value []byte) error {
	if t.readOnly {
		return sentinel.ErrReadOnly
	}
	if err := validName(bucket, key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO kv_entries (namespace, bucket, key, value, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (namespace, bucket, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()`,
		t.namespace, bucket, key, value,
	)
	if err != nil {
		return fmt.Errorf("kv: put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (t *pgTxn) Delete(bucket, key string) error {
	if t.readOnly {
		return sentinel.ErrReadOnly
	}
	if err := validName(bucket, key); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM kv_entries WHERE namespace = $1 AND bucket = $2 AND key = $3`,
		t.namespace, bucket, key,
	)
	if err != nil {
		return fmt.Errorf("kv: delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

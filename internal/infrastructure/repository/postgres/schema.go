package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/poller startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS certificates (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	environment TEXT NOT NULL,
	certificate_pem TEXT NOT NULL,
	private_key_pem TEXT NOT NULL,
	ca_chain_pem TEXT NOT NULL DEFAULT '',
	issuer_dn TEXT NOT NULL DEFAULT '',
	fiscal_code TEXT NOT NULL,
	issued_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_certificates_default
	ON certificates(org_id, environment) WHERE is_default AND is_active;

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	environment TEXT NOT NULL,
	channel TEXT NOT NULL,
	status TEXT NOT NULL,
	remote_status TEXT NOT NULL DEFAULT '',
	remote_id TEXT NOT NULL DEFAULT '',
	sync_status TEXT NOT NULL,
	sync_error TEXT NOT NULL DEFAULT '',
	last_sync_at TIMESTAMPTZ,
	payload JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_sync_status ON documents(org_id, environment, sync_status);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	state TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	poll_attempts INTEGER NOT NULL DEFAULT 0,
	last_polled_at TIMESTAMPTZ,
	result_ref TEXT NOT NULL DEFAULT '',
	terminal BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_transactions_pollable ON transactions(submitted_at) WHERE NOT terminal;

CREATE TABLE IF NOT EXISTS organizations (
	id TEXT PRIMARY KEY,
	default_environment TEXT NOT NULL DEFAULT 'demo'
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

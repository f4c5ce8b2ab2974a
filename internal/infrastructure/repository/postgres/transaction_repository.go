package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fleetyard/regsync/internal/core/domain"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO transactions (id, document_id, state, submitted_at, poll_attempts, last_polled_at, result_ref, terminal)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, tx.ID, tx.DocumentID, string(tx.State), tx.SubmittedAt, tx.PollAttempts, tx.LastPolledAt, tx.ResultRef, tx.Terminal)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, state, submitted_at, poll_attempts, last_polled_at, result_ref, terminal
FROM transactions
WHERE id = $1
`, id)

	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTransactionNotFound, "get transaction", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) RecordPoll(ctx context.Context, id string, state domain.TransactionState) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE transactions
SET state = $2, poll_attempts = poll_attempts + 1, last_polled_at = $3
WHERE id = $1 AND NOT terminal
`, id, string(state), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record poll: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record poll rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrTransactionNotFound, "record poll", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (r *TransactionRepository) SetCompleted(ctx context.Context, id, resultRef string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE transactions
SET state = $2, result_ref = $3, last_polled_at = $4
WHERE id = $1 AND NOT terminal
`, id, string(domain.TxCompleted), resultRef, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set completed: %w", err)
	}
	return oneRowUpdated(result, "set completed")
}

func (r *TransactionRepository) MarkTerminal(ctx context.Context, id string, state domain.TransactionState, resultRef string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE transactions
SET state = $2, result_ref = $3, terminal = TRUE
WHERE id = $1 AND NOT terminal
`, id, string(state), resultRef)
	if err != nil {
		return false, fmt.Errorf("mark terminal: %w", err)
	}
	return oneRowUpdated(result, "mark terminal")
}

func (r *TransactionRepository) ListPollable(ctx context.Context, limit int) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, state, submitted_at, poll_attempts, last_polled_at, result_ref, terminal
FROM transactions
WHERE NOT terminal
ORDER BY submitted_at ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pollable: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

type txScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row txScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var state string
	var lastPolledAt sql.NullTime
	err := row.Scan(
		&tx.ID,
		&tx.DocumentID,
		&state,
		&tx.SubmittedAt,
		&tx.PollAttempts,
		&lastPolledAt,
		&tx.ResultRef,
		&tx.Terminal,
	)
	if err != nil {
		return nil, err
	}
	tx.State = domain.TransactionState(state)
	if lastPolledAt.Valid {
		t := lastPolledAt.Time
		tx.LastPolledAt = &t
	}
	return &tx, nil
}

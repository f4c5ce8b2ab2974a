package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fleetyard/regsync/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, org_id, environment, channel, status, remote_status, remote_id, sync_status, sync_error,
	last_sync_at, payload, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var environment, channel, status, syncStatus string
	var lastSyncAt sql.NullTime
	var payload []byte

	err := row.Scan(
		&doc.ID, &doc.OrgID, &environment, &channel, &status, &doc.RemoteStatus, &doc.RemoteID,
		&syncStatus, &doc.SyncError, &lastSyncAt, &payload, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.Environment = domain.Environment(environment)
	doc.Channel = domain.Channel(channel)
	doc.Status = domain.DocumentStatus(status)
	doc.SyncStatus = domain.SyncStatus(syncStatus)
	if lastSyncAt.Valid {
		t := lastSyncAt.Time
		doc.LastSyncAt = &t
	}
	doc.Payload = payload
	return &doc, nil
}

// ClaimForTransmission is the compare-and-swap entry into the transmission
// lifecycle: only pending and error documents can be claimed, and only one
// concurrent caller wins.
func (r *DocumentRepository) ClaimForTransmission(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET sync_status = $2, sync_error = '', updated_at = $3
WHERE id = $1 AND sync_status IN ($4, $5)
`, id, string(domain.SyncInTransmission), time.Now().UTC(), string(domain.SyncPending), string(domain.SyncError))
	if err != nil {
		return false, fmt.Errorf("claim document: %w", err)
	}
	return oneRowUpdated(result, "claim document")
}

// ReleaseClaim undoes a claim whose gateway call failed transiently: the
// document goes back to pending so the next submit attempt can claim it.
// Only an in_transmission row is touched; a concurrent terminal write wins.
func (r *DocumentRepository) ReleaseClaim(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET sync_status = $2, updated_at = $3
WHERE id = $1 AND sync_status = $4
`, id, string(domain.SyncPending), time.Now().UTC(), string(domain.SyncInTransmission))
	if err != nil {
		return false, fmt.Errorf("release claim: %w", err)
	}
	return oneRowUpdated(result, "release claim")
}

// MarkSynced writes the terminal outcome conditionally: the document must be
// in_transmission and the remote identifier, once set, is immutable (first
// successful writer wins).
func (r *DocumentRepository) MarkSynced(ctx context.Context, id string, status domain.DocumentStatus, remoteStatus, remoteID string) (bool, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET sync_status = $2, status = $3, remote_status = $4,
	remote_id = CASE WHEN remote_id = '' THEN $5 ELSE remote_id END,
	sync_error = '', last_sync_at = $6, updated_at = $6
WHERE id = $1 AND sync_status = $7 AND (remote_id = '' OR remote_id = $5)
`, id, string(domain.SyncSynced), string(status), remoteStatus, remoteID, now, string(domain.SyncInTransmission))
	if err != nil {
		return false, fmt.Errorf("mark synced: %w", err)
	}
	return oneRowUpdated(result, "mark synced")
}

func (r *DocumentRepository) MarkSyncError(ctx context.Context, id string, message string) (bool, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET sync_status = $2, sync_error = $3, last_sync_at = $4, updated_at = $4
WHERE id = $1 AND sync_status = $5
`, id, string(domain.SyncError), message, now, string(domain.SyncInTransmission))
	if err != nil {
		return false, fmt.Errorf("mark sync error: %w", err)
	}
	return oneRowUpdated(result, "mark sync error")
}

func (r *DocumentRepository) MarkCancelledLocally(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, updated_at = $3
WHERE id = $1 AND remote_id = '' AND status <> $2
`, id, string(domain.DocStatusCancelled), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("cancel locally: %w", err)
	}
	return oneRowUpdated(result, "cancel locally")
}

func (r *DocumentRepository) MarkCancelledRemote(ctx context.Context, id, remoteID, remoteStatus string) (bool, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, remote_status = $3, last_sync_at = $4, updated_at = $4
WHERE id = $1 AND remote_id = $5
`, id, string(domain.DocStatusCancelled), remoteStatus, now, remoteID)
	if err != nil {
		return false, fmt.Errorf("cancel remote: %w", err)
	}
	return oneRowUpdated(result, "cancel remote")
}

func oneRowUpdated(result sql.Result, operation string) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", operation, err)
	}
	return rows > 0, nil
}

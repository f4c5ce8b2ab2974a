package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/fleetyard/regsync/internal/core/domain"
)

func newDocRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestDocumentGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, org_id, environment, channel").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentGetByIDScansNullableFields(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "org_id", "environment", "channel", "status", "remote_status", "remote_id",
		"sync_status", "sync_error", "last_sync_at", "payload", "created_at", "updated_at",
	}).AddRow("doc-1", "org-1", "demo", "waste", "submitted", "", "", "pending", "", nil, nil, now, now)

	mock.ExpectQuery("SELECT id, org_id, environment, channel").
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.SyncStatus != domain.SyncPending || doc.Channel != domain.ChannelWaste {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.LastSyncAt != nil {
		t.Fatalf("expected nil last_sync_at")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimForTransmissionWinsOnlyOnce(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.SyncInTransmission), sqlmock.AnyArg(),
			string(domain.SyncPending), string(domain.SyncError)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.SyncInTransmission), sqlmock.AnyArg(),
			string(domain.SyncPending), string(domain.SyncError)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.ClaimForTransmission(context.Background(), "doc-1")
	if err != nil || !claimed {
		t.Fatalf("first claim = (%v, %v), want (true, nil)", claimed, err)
	}
	claimed, err = repo.ClaimForTransmission(context.Background(), "doc-1")
	if err != nil || claimed {
		t.Fatalf("second claim = (%v, %v), want (false, nil)", claimed, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReleaseClaimOnlyTouchesInTransmissionRows(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.SyncPending), sqlmock.AnyArg(),
			string(domain.SyncInTransmission)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.SyncPending), sqlmock.AnyArg(),
			string(domain.SyncInTransmission)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	released, err := repo.ReleaseClaim(context.Background(), "doc-1")
	if err != nil || !released {
		t.Fatalf("release = (%v, %v), want (true, nil)", released, err)
	}
	released, err = repo.ReleaseClaim(context.Background(), "doc-1")
	if err != nil || released {
		t.Fatalf("release of a pending row = (%v, %v), want (false, nil)", released, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkSyncedConditionalRefusalIsNotAnError(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.SyncSynced), string(domain.DocStatusAccepted),
			"validato", "R-1", sqlmock.AnyArg(), string(domain.SyncInTransmission)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.MarkSynced(context.Background(), "doc-1", domain.DocStatusAccepted, "validato", "R-1")
	if err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}
	if updated {
		t.Fatalf("expected conditional write refusal")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkCancelledLocallyRefusesDocumentsWithRemoteID(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.DocStatusCancelled), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.MarkCancelledLocally(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("MarkCancelledLocally() error = %v", err)
	}
	if updated {
		t.Fatalf("expected refusal for document with remote id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

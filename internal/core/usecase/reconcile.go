package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fleetyard/regsync/internal/core/domain"
	"github.com/fleetyard/regsync/internal/core/ports"
)

// StateReconciler translates a gateway outcome into the authoritative local
// record. Applying the same terminal outcome twice is a no-op; a different
// remote identifier on an already-synced document is a conflict that is
// surfaced, never overwritten.
type StateReconciler struct {
	docs   ports.DocumentStore
	mapper *StatusMapper
}

func NewStateReconciler(docs ports.DocumentStore, mapper *StatusMapper) *StateReconciler {
	return &StateReconciler{docs: docs, mapper: mapper}
}

func (r *StateReconciler) Apply(ctx context.Context, documentID string, outcome domain.RemoteOutcome) error {
	if outcome.RemoteStatus == "" {
		return domain.WrapError(domain.ErrInvalidInput, "reconcile outcome",
			errors.New("remote status is empty"))
	}

	doc, err := r.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	if doc.SyncStatus == domain.SyncSynced {
		if doc.RemoteID == outcome.RemoteID {
			return nil
		}
		return r.conflict(doc, outcome)
	}

	status, known := r.mapper.Map(outcome.RemoteStatus)
	if !known {
		slog.Warn("unmapped_remote_status",
			"document_id", documentID,
			"remote_status", outcome.RemoteStatus,
			"mapped_to", string(status),
		)
	}

	updated, err := r.docs.MarkSynced(ctx, documentID, status, outcome.RemoteStatus, outcome.RemoteID)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	if updated {
		return nil
	}

	// The conditional write refused: either a concurrent reconciliation won
	// the race, or the stored remote identifier disagrees with ours.
	current, err := r.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("reload document: %w", err)
	}
	if current.SyncStatus == domain.SyncSynced {
		if current.RemoteID == outcome.RemoteID {
			return nil
		}
		return r.conflict(current, outcome)
	}
	if current.RemoteID != "" && outcome.RemoteID != "" && current.RemoteID != outcome.RemoteID {
		return r.conflict(current, outcome)
	}
	return domain.WrapError(domain.ErrInvalidInput, "reconcile outcome",
		fmt.Errorf("document in sync status %q cannot accept a terminal outcome", current.SyncStatus))
}

func (r *StateReconciler) conflict(doc *domain.Document, outcome domain.RemoteOutcome) error {
	slog.Error("remote_identifier_conflict",
		"document_id", doc.ID,
		"stored_remote_id", doc.RemoteID,
		"observed_remote_id", outcome.RemoteID,
		"remote_status", outcome.RemoteStatus,
	)
	return domain.WrapError(domain.ErrInconsistentRemoteState, "reconcile outcome",
		fmt.Errorf("stored remote id %q, observed %q", doc.RemoteID, outcome.RemoteID))
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetyard/regsync/internal/core/domain"
	"github.com/fleetyard/regsync/internal/core/ports"
)

// SubmitDocumentUseCase drives one submission end to end: resolve the signing
// identity, claim the document, submit to the gateway and either open a poll
// transaction (waste channel) or reconcile a synchronous remote id (invoicing
// channel).
type SubmitDocumentUseCase struct {
	docs       ports.DocumentStore
	txs        ports.TransactionStore
	resolver   *CertificateResolver
	signer     ports.TokenIssuer
	gateway    ports.RegulatoryGateway
	reconciler ports.OutcomeReconciler
	queue      ports.MessageQueue
	now        func() time.Time
}

func NewSubmitDocumentUseCase(
	docs ports.DocumentStore,
	txs ports.TransactionStore,
	resolver *CertificateResolver,
	signer ports.TokenIssuer,
	gateway ports.RegulatoryGateway,
	reconciler ports.OutcomeReconciler,
	queue ports.MessageQueue,
) *SubmitDocumentUseCase {
	return &SubmitDocumentUseCase{
		docs:       docs,
		txs:        txs,
		resolver:   resolver,
		signer:     signer,
		gateway:    gateway,
		reconciler: reconciler,
		queue:      queue,
		now:        time.Now,
	}
}

func (uc *SubmitDocumentUseCase) Submit(ctx context.Context, documentID string) (*ports.SubmissionResult, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	switch doc.SyncStatus {
	case domain.SyncPending, domain.SyncError:
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit document",
			fmt.Errorf("sync status %q is not submittable", doc.SyncStatus))
	}

	claimed, err := uc.docs.ClaimForTransmission(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("claim document: %w", err)
	}
	if !claimed {
		// Another invocation claimed it between the read and the update.
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit document",
			errors.New("document already claimed"))
	}

	receipt, err := uc.transmit(ctx, doc)
	if err != nil {
		if domain.IsKind(err, domain.ErrTemporary) {
			// Transient: nothing reached the gateway's books, so hand the
			// claim back; the next submit attempt claims it again.
			if _, releaseErr := uc.docs.ReleaseClaim(ctx, doc.ID); releaseErr != nil {
				return nil, fmt.Errorf("%w; release claim: %v", err, releaseErr)
			}
			return nil, err
		}
		if _, markErr := uc.docs.MarkSyncError(ctx, doc.ID, err.Error()); markErr != nil {
			return nil, fmt.Errorf("%w; record sync error: %v", err, markErr)
		}
		return nil, err
	}

	result := &ports.SubmissionResult{}
	switch {
	case receipt.TransactionID != "":
		tx := &domain.Transaction{
			ID:          receipt.TransactionID,
			DocumentID:  doc.ID,
			State:       domain.TxSubmitted,
			SubmittedAt: uc.now().UTC(),
		}
		if err := uc.txs.Create(ctx, tx); err != nil {
			return nil, fmt.Errorf("record transaction: %w", err)
		}
		if err := uc.queue.PublishPollRequested(ctx, tx.ID); err != nil {
			// The cron re-enqueue covers a lost publish.
			slog.Warn("poll_publish_failed", "transaction_id", tx.ID, "error", err)
		}
		result.Transaction = tx
	case receipt.RemoteID != "":
		if err := uc.reconciler.Apply(ctx, doc.ID, domain.RemoteOutcome{
			RemoteStatus: receipt.RemoteStatus,
			RemoteID:     receipt.RemoteID,
		}); err != nil {
			return nil, fmt.Errorf("reconcile synchronous outcome: %w", err)
		}
	default:
		err := errors.New("gateway returned neither transaction id nor remote id")
		if _, markErr := uc.docs.MarkSyncError(ctx, doc.ID, err.Error()); markErr != nil {
			return nil, fmt.Errorf("%w; record sync error: %v", err, markErr)
		}
		return nil, domain.WrapError(domain.ErrRemoteRejected, "submit document", err)
	}

	updated, err := uc.docs.GetByID(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("reload document: %w", err)
	}
	result.Document = updated
	return result, nil
}

func (uc *SubmitDocumentUseCase) transmit(ctx context.Context, doc *domain.Document) (*domain.SubmitReceipt, error) {
	cert, err := uc.resolver.Resolve(ctx, doc.OrgID, doc.Environment)
	if err != nil {
		return nil, err
	}
	token, err := uc.signer.Issue(cert, cert.Environment)
	if err != nil {
		return nil, err
	}
	receipt, err := uc.gateway.Submit(ctx, token, doc)
	if err != nil {
		return nil, fmt.Errorf("gateway submit: %w", err)
	}
	return receipt, nil
}

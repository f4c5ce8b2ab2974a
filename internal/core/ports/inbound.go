package ports

import (
	"context"

	"github.com/fleetyard/regsync/internal/core/domain"
)

// SubmissionResult is the caller-facing answer of a submit operation.
type SubmissionResult struct {
	Document    *domain.Document    `json:"document"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

// TransactionStatus distinguishes "still processing" from "failed" from
// "succeeded" for callers.
type TransactionStatus struct {
	TransactionID string                  `json:"transaction_id"`
	State         domain.TransactionState `json:"state"`
	PollAttempts  int                     `json:"poll_attempts"`
	ResultRef     string                  `json:"result_ref,omitempty"`
	Terminal      bool                    `json:"terminal"`
}

// ReconcileReport summarizes a per-item reconciliation pass. A failure on one
// item never rolls back siblings.
type ReconcileReport struct {
	TransactionID string   `json:"transaction_id"`
	Applied       []string `json:"applied"`
	Failed        []string `json:"failed,omitempty"`
}

// DocumentSubmitter is the inbound contract for submitting one document.
type DocumentSubmitter interface {
	Submit(ctx context.Context, documentID string) (*SubmissionResult, error)
}

// TransactionChecker drives one poll step and reports structured status.
type TransactionChecker interface {
	CheckStatus(ctx context.Context, transactionID string) (*TransactionStatus, error)
}

// ResultProcessor fetches a completed transaction's result and reconciles it.
type ResultProcessor interface {
	ProcessResult(ctx context.Context, transactionID string) (*ReconcileReport, error)
}

// DocumentCanceler cancels a document locally or through the gateway.
type DocumentCanceler interface {
	Cancel(ctx context.Context, documentID, reason string) (*domain.Document, error)
}

// OutcomeReconciler applies one remote outcome to the authoritative record.
type OutcomeReconciler interface {
	Apply(ctx context.Context, documentID string, outcome domain.RemoteOutcome) error
}

package ports

import (
	"context"

	"github.com/fleetyard/regsync/internal/core/domain"
)

// CertificateStore reads provisioned signing identities.
type CertificateStore interface {
	ListByOrgEnv(ctx context.Context, orgID string, env domain.Environment) ([]domain.Certificate, error)
}

// OrgSettings exposes the organization's configured default environment.
type OrgSettings interface {
	DefaultEnvironment(ctx context.Context, orgID string) (domain.Environment, error)
}

// DocumentStore persists document state. Every mutation is conditional on the
// currently observed sync status; a false return means another invocation got
// there first and the caller must treat it as a no-op.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)

	// ClaimForTransmission moves pending|error -> in_transmission.
	ClaimForTransmission(ctx context.Context, id string) (bool, error)

	// ReleaseClaim rolls in_transmission back to pending after a transient
	// gateway failure, so a later submit can claim the document again.
	ReleaseClaim(ctx context.Context, id string) (bool, error)

	// MarkSynced moves in_transmission -> synced and records the mapped local
	// status plus the verbatim remote status. The remote identifier is written
	// only if the row has none yet or already carries the same value.
	MarkSynced(ctx context.Context, id string, status domain.DocumentStatus, remoteStatus, remoteID string) (bool, error)

	// MarkSyncError moves in_transmission -> error with the failure recorded.
	MarkSyncError(ctx context.Context, id string, message string) (bool, error)

	// MarkCancelledLocally cancels a document that never got a remote
	// identifier. No network interaction is involved.
	MarkCancelledLocally(ctx context.Context, id string) (bool, error)

	// MarkCancelledRemote records a gateway-acknowledged cancellation for a
	// document that already carries the given remote identifier.
	MarkCancelledRemote(ctx context.Context, id, remoteID, remoteStatus string) (bool, error)
}

// TransactionStore persists poll state so a budget-exhausted invocation can be
// resumed by a later one.
type TransactionStore interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	// RecordPoll bumps the attempt counter and stores the observed state.
	RecordPoll(ctx context.Context, id string, state domain.TransactionState) error
	// SetCompleted stores the 303 result reference. The transaction stays
	// non-terminal until its result has been reconciled.
	SetCompleted(ctx context.Context, id, resultRef string) (bool, error)
	// MarkTerminal flips a non-terminal transaction to its final state.
	// Once terminal a transaction is never polled again.
	MarkTerminal(ctx context.Context, id string, state domain.TransactionState, resultRef string) (bool, error)
	ListPollable(ctx context.Context, limit int) ([]domain.Transaction, error)
}

// RegulatoryGateway is the low-level adapter for the remote government API.
// No call retries internally; retry policy belongs to the caller.
type RegulatoryGateway interface {
	Submit(ctx context.Context, token string, doc *domain.Document) (*domain.SubmitReceipt, error)
	PollStatus(ctx context.Context, token string, env domain.Environment, channel domain.Channel, transactionID string) (*domain.PollResult, error)
	FetchResult(ctx context.Context, token string, env domain.Environment, channel domain.Channel, transactionID, resultRef string) (*domain.ResultDescriptor, error)
	Cancel(ctx context.Context, token string, env domain.Environment, channel domain.Channel, remoteID, reason string) error
}

// TokenIssuer builds the short-lived proof-of-possession token for one request.
type TokenIssuer interface {
	Issue(cert *domain.Certificate, env domain.Environment) (string, error)
}

// MessageQueue dispatches poll work to the poller process.
type MessageQueue interface {
	PublishPollRequested(ctx context.Context, transactionID string) error
	SubscribePollRequested(ctx context.Context, handler func(context.Context, string) error) error
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fleetyard/regsync/internal/core/domain"
	"github.com/fleetyard/regsync/internal/core/ports"
)

// PollerConfig bounds how long a transaction keeps being polled before the
// invocation gives up and leaves it resumable for the next trigger.
type PollerConfig struct {
	MaxAttempts int
	Budget      time.Duration
	BatchSize   int
	Concurrency int
}

// TransactionPoller drives the non-blocking pull protocol for waste-tracking
// submissions: poll until 303, fetch the result, reconcile each item.
// State lives in the transaction row, not in memory, so every step can be
// re-invoked safely.
type TransactionPoller struct {
	txs        ports.TransactionStore
	docs       ports.DocumentStore
	resolver   *CertificateResolver
	signer     ports.TokenIssuer
	gateway    ports.RegulatoryGateway
	reconciler ports.OutcomeReconciler
	cfg        PollerConfig
	now        func() time.Time
}

func NewTransactionPoller(
	txs ports.TransactionStore,
	docs ports.DocumentStore,
	resolver *CertificateResolver,
	signer ports.TokenIssuer,
	gateway ports.RegulatoryGateway,
	reconciler ports.OutcomeReconciler,
	cfg PollerConfig,
) *TransactionPoller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 3 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &TransactionPoller{
		txs:        txs,
		docs:       docs,
		resolver:   resolver,
		signer:     signer,
		gateway:    gateway,
		reconciler: reconciler,
		cfg:        cfg,
		now:        time.Now,
	}
}

// CheckStatus performs one poll step for a transaction and reports where it
// stands. Terminal transactions are reported as-is without touching the
// gateway.
func (p *TransactionPoller) CheckStatus(ctx context.Context, transactionID string) (*ports.TransactionStatus, error) {
	tx, err := p.txs.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if tx.Terminal {
		return statusOf(tx), nil
	}
	if tx.State == domain.TxCompleted {
		// Already completed but not yet reconciled; finish that instead of
		// polling again.
		if _, err := p.ProcessResult(ctx, tx.ID); err != nil {
			return nil, err
		}
		return p.reportStatus(ctx, tx.ID)
	}

	doc, err := p.docs.GetByID(ctx, tx.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	token, err := p.issueToken(ctx, doc)
	if err != nil {
		return nil, err
	}

	res, err := p.gateway.PollStatus(ctx, token, doc.Environment, doc.Channel, tx.ID)
	if err != nil {
		return p.handlePollError(ctx, tx, doc, err)
	}

	if !res.Completed {
		// Still processing: the 200 path never moves the document away from
		// in_transmission.
		state := domain.TxPolling
		if p.budgetExhausted(tx) {
			state = domain.TxTimedOut
		}
		if err := p.txs.RecordPoll(ctx, tx.ID, state); err != nil {
			return nil, fmt.Errorf("record poll: %w", err)
		}
		return p.reportStatus(ctx, tx.ID)
	}

	if _, err := p.txs.SetCompleted(ctx, tx.ID, res.ResultRef); err != nil {
		return nil, fmt.Errorf("record completion: %w", err)
	}
	if _, err := p.ProcessResult(ctx, tx.ID); err != nil {
		return nil, err
	}
	return p.reportStatus(ctx, tx.ID)
}

// ProcessResult fetches the completed transaction's result and reconciles
// every contained item independently; one failed item never rolls back its
// siblings.
func (p *TransactionPoller) ProcessResult(ctx context.Context, transactionID string) (*ports.ReconcileReport, error) {
	tx, err := p.txs.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if tx.State != domain.TxCompleted || tx.ResultRef == "" {
		return nil, domain.WrapError(domain.ErrResultNotReady, "process result",
			fmt.Errorf("transaction %s in state %q", tx.ID, tx.State))
	}

	doc, err := p.docs.GetByID(ctx, tx.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	token, err := p.issueToken(ctx, doc)
	if err != nil {
		return nil, err
	}

	desc, err := p.gateway.FetchResult(ctx, token, doc.Environment, doc.Channel, tx.ID, tx.ResultRef)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}

	report := &ports.ReconcileReport{TransactionID: tx.ID}
	var itemErrs []error
	for _, item := range desc.Items {
		docID := item.DocumentID
		if docID == "" {
			docID = tx.DocumentID
		}
		if err := p.reconciler.Apply(ctx, docID, item.Outcome); err != nil {
			report.Failed = append(report.Failed, docID)
			itemErrs = append(itemErrs, fmt.Errorf("document %s: %w", docID, err))
			continue
		}
		report.Applied = append(report.Applied, docID)
	}

	if len(itemErrs) > 0 {
		// Leave the transaction non-terminal so reconciliation can be
		// re-triggered for the failed items.
		return report, errors.Join(itemErrs...)
	}
	if _, err := p.txs.MarkTerminal(ctx, tx.ID, domain.TxCompleted, tx.ResultRef); err != nil {
		return report, fmt.Errorf("mark transaction terminal: %w", err)
	}
	return report, nil
}

// PollDue runs one bounded pass over every pollable transaction. Individual
// failures are logged and do not abort the pass.
func (p *TransactionPoller) PollDue(ctx context.Context) error {
	pending, err := p.txs.ListPollable(ctx, p.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list pollable transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.cfg.Concurrency)
	for _, tx := range pending {
		eg.Go(func() error {
			if _, err := p.CheckStatus(gctx, tx.ID); err != nil {
				slog.Warn("poll_pass_item_failed", "transaction_id", tx.ID, "error", err)
			}
			return nil
		})
	}
	return eg.Wait()
}

func (p *TransactionPoller) handlePollError(ctx context.Context, tx *domain.Transaction, doc *domain.Document, pollErr error) (*ports.TransactionStatus, error) {
	if domain.IsKind(pollErr, domain.ErrRemoteRejected) {
		// Definitive gateway refusal: the transaction is dead.
		if _, err := p.txs.MarkTerminal(ctx, tx.ID, domain.TxFailed, ""); err != nil {
			return nil, fmt.Errorf("%w; mark transaction failed: %v", pollErr, err)
		}
		if _, err := p.docs.MarkSyncError(ctx, doc.ID, pollErr.Error()); err != nil {
			return nil, fmt.Errorf("%w; record sync error: %v", pollErr, err)
		}
		return p.reportStatus(ctx, tx.ID)
	}
	// Transient (5xx, network): count the attempt against the same budget as
	// the still-processing path, so a gateway that only ever errors still
	// drives the transaction to timed_out.
	state := domain.TxPolling
	if p.budgetExhausted(tx) {
		state = domain.TxTimedOut
	}
	if err := p.txs.RecordPoll(ctx, tx.ID, state); err != nil {
		return nil, fmt.Errorf("%w; record poll: %v", pollErr, err)
	}
	return nil, pollErr
}

func (p *TransactionPoller) budgetExhausted(tx *domain.Transaction) bool {
	if tx.PollAttempts+1 >= p.cfg.MaxAttempts {
		return true
	}
	return p.now().UTC().Sub(tx.SubmittedAt) > p.cfg.Budget
}

func (p *TransactionPoller) issueToken(ctx context.Context, doc *domain.Document) (string, error) {
	cert, err := p.resolver.Resolve(ctx, doc.OrgID, doc.Environment)
	if err != nil {
		return "", err
	}
	return p.signer.Issue(cert, cert.Environment)
}

func (p *TransactionPoller) reportStatus(ctx context.Context, transactionID string) (*ports.TransactionStatus, error) {
	tx, err := p.txs.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("reload transaction: %w", err)
	}
	return statusOf(tx), nil
}

func statusOf(tx *domain.Transaction) *ports.TransactionStatus {
	return &ports.TransactionStatus{
		TransactionID: tx.ID,
		State:         tx.State,
		PollAttempts:  tx.PollAttempts,
		ResultRef:     tx.ResultRef,
		Terminal:      tx.Terminal,
	}
}

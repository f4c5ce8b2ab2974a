package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetyard/regsync/internal/core/domain"
	"github.com/fleetyard/regsync/internal/core/ports"
)

// CancelDocumentUseCase cancels a document. Without a remote identifier the
// cancellation is purely local; with one it is a new outbound gateway call,
// never an interruption of in-flight work.
type CancelDocumentUseCase struct {
	docs     ports.DocumentStore
	resolver *CertificateResolver
	signer   ports.TokenIssuer
	gateway  ports.RegulatoryGateway
}

func NewCancelDocumentUseCase(
	docs ports.DocumentStore,
	resolver *CertificateResolver,
	signer ports.TokenIssuer,
	gateway ports.RegulatoryGateway,
) *CancelDocumentUseCase {
	return &CancelDocumentUseCase{
		docs:     docs,
		resolver: resolver,
		signer:   signer,
		gateway:  gateway,
	}
}

func (uc *CancelDocumentUseCase) Cancel(ctx context.Context, documentID, reason string) (*domain.Document, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc.Status == domain.DocStatusCancelled {
		return doc, nil
	}

	if doc.RemoteID == "" {
		if _, err := uc.docs.MarkCancelledLocally(ctx, doc.ID); err != nil {
			return nil, fmt.Errorf("cancel locally: %w", err)
		}
		return uc.docs.GetByID(ctx, doc.ID)
	}

	if reason == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "cancel document",
			errors.New("a reason is required for remote cancellation"))
	}

	cert, err := uc.resolver.Resolve(ctx, doc.OrgID, doc.Environment)
	if err != nil {
		return nil, err
	}
	token, err := uc.signer.Issue(cert, cert.Environment)
	if err != nil {
		return nil, err
	}
	if err := uc.gateway.Cancel(ctx, token, doc.Environment, doc.Channel, doc.RemoteID, reason); err != nil {
		return nil, fmt.Errorf("gateway cancel: %w", err)
	}

	if _, err := uc.docs.MarkCancelledRemote(ctx, doc.ID, doc.RemoteID, "annullato"); err != nil {
		return nil, fmt.Errorf("record remote cancellation: %w", err)
	}
	return uc.docs.GetByID(ctx, doc.ID)
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetyard/regsync/internal/core/domain"
	"github.com/fleetyard/regsync/internal/core/ports"
)

// CertificateResolver picks the single authoritative signing identity for an
// organization and environment: the active default first, the most recently
// created active certificate as fallback. An expired winner is rejected
// outright instead of falling back to an unrelated certificate.
type CertificateResolver struct {
	certs ports.CertificateStore
	orgs  ports.OrgSettings
	now   func() time.Time
}

func NewCertificateResolver(certs ports.CertificateStore, orgs ports.OrgSettings) *CertificateResolver {
	return &CertificateResolver{
		certs: certs,
		orgs:  orgs,
		now:   time.Now,
	}
}

func (r *CertificateResolver) Resolve(ctx context.Context, orgID string, env domain.Environment) (*domain.Certificate, error) {
	if env == "" {
		resolved, err := r.orgs.DefaultEnvironment(ctx, orgID)
		if err != nil {
			return nil, fmt.Errorf("resolve default environment: %w", err)
		}
		env = resolved
	}

	certs, err := r.certs.ListByOrgEnv(ctx, orgID, env)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}

	selected := selectCertificate(certs)
	if selected == nil {
		return nil, domain.WrapError(domain.ErrCertificateNotFound, "resolve certificate",
			fmt.Errorf("org=%s env=%s", orgID, env))
	}
	if selected.Expired(r.now().UTC()) {
		return nil, domain.WrapError(domain.ErrCertificateExpired, "resolve certificate",
			fmt.Errorf("certificate %s expired at %s", selected.ID, selected.ExpiresAt.Format(time.RFC3339)))
	}
	return selected, nil
}

func selectCertificate(certs []domain.Certificate) *domain.Certificate {
	var newest *domain.Certificate
	for i := range certs {
		c := &certs[i]
		if !c.IsActive {
			continue
		}
		if c.IsDefault {
			return c
		}
		if newest == nil || c.CreatedAt.After(newest.CreatedAt) {
			newest = c
		}
	}
	return newest
}

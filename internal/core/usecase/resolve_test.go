package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fleetyard/regsync/internal/core/domain"
)

type certStoreFake struct {
	certs []domain.Certificate
	err   error
}

func (f *certStoreFake) ListByOrgEnv(context.Context, string, domain.Environment) ([]domain.Certificate, error) {
	return f.certs, f.err
}

type orgSettingsFake struct {
	env domain.Environment
	err error
}

func (f *orgSettingsFake) DefaultEnvironment(context.Context, string) (domain.Environment, error) {
	return f.env, f.err
}

func newTestResolver(certs []domain.Certificate, now time.Time) *CertificateResolver {
	r := NewCertificateResolver(&certStoreFake{certs: certs}, &orgSettingsFake{env: domain.EnvDemo})
	r.now = func() time.Time { return now }
	return r
}

func TestResolvePrefersActiveDefault(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	certs := []domain.Certificate{
		{ID: "newest", IsActive: true, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(24 * time.Hour)},
		{ID: "default", IsActive: true, IsDefault: true, CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(24 * time.Hour)},
	}
	r := newTestResolver(certs, now)

	got, err := r.Resolve(context.Background(), "org-1", domain.EnvDemo)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.ID != "default" {
		t.Fatalf("expected default certificate, got %s", got.ID)
	}
}

func TestResolveFallsBackToNewestActive(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	certs := []domain.Certificate{
		{ID: "older", IsActive: true, CreatedAt: now.Add(-72 * time.Hour), ExpiresAt: now.Add(24 * time.Hour)},
		{ID: "inactive-default", IsDefault: true, CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)},
		{ID: "newest", IsActive: true, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(24 * time.Hour)},
	}
	r := newTestResolver(certs, now)

	got, err := r.Resolve(context.Background(), "org-1", domain.EnvDemo)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.ID != "newest" {
		t.Fatalf("expected newest active certificate, got %s", got.ID)
	}
}

func TestResolveExpiredWinnerFailsWithoutFallback(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	certs := []domain.Certificate{
		{ID: "expired-default", IsActive: true, IsDefault: true, CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{ID: "valid-other", IsActive: true, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(24 * time.Hour)},
	}
	r := newTestResolver(certs, now)

	_, err := r.Resolve(context.Background(), "org-1", domain.EnvDemo)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrCertificateExpired) {
		t.Fatalf("expected ErrCertificateExpired, got %v", err)
	}
}

func TestResolveNoActiveCertificates(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	certs := []domain.Certificate{
		{ID: "inactive", CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)},
	}
	r := newTestResolver(certs, now)

	_, err := r.Resolve(context.Background(), "org-1", domain.EnvDemo)
	if !domain.IsKind(err, domain.ErrCertificateNotFound) {
		t.Fatalf("expected ErrCertificateNotFound, got %v", err)
	}
}

func TestResolveUsesOrgDefaultEnvironmentWhenUnset(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	certs := &certStoreFake{certs: []domain.Certificate{
		{ID: "c1", IsActive: true, CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)},
	}}
	orgs := &orgSettingsFake{env: domain.EnvProd}
	r := NewCertificateResolver(certs, orgs)
	r.now = func() time.Time { return now }

	got, err := r.Resolve(context.Background(), "org-1", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.ID != "c1" {
		t.Fatalf("unexpected certificate %s", got.ID)
	}
}

func TestResolveOrgLookupError(t *testing.T) {
	r := NewCertificateResolver(&certStoreFake{}, &orgSettingsFake{err: errors.New("db down")})
	if _, err := r.Resolve(context.Background(), "org-1", ""); err == nil {
		t.Fatalf("expected error")
	}
}

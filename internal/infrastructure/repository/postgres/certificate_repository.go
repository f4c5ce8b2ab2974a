package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleetyard/regsync/internal/core/domain"
)

type CertificateRepository struct {
	db *sql.DB
}

func NewCertificateRepository(db *sql.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

func (r *CertificateRepository) ListByOrgEnv(ctx context.Context, orgID string, env domain.Environment) ([]domain.Certificate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, org_id, environment, certificate_pem, private_key_pem, ca_chain_pem, issuer_dn, fiscal_code,
	issued_at, expires_at, is_active, is_default, created_at
FROM certificates
WHERE org_id = $1 AND environment = $2
ORDER BY created_at DESC
`, orgID, string(env))
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Certificate, 0)
	for rows.Next() {
		var cert domain.Certificate
		var environment string
		err := rows.Scan(
			&cert.ID, &cert.OrgID, &environment, &cert.CertificatePEM, &cert.PrivateKeyPEM,
			&cert.CAChainPEM, &cert.IssuerDN, &cert.FiscalCode,
			&cert.IssuedAt, &cert.ExpiresAt, &cert.IsActive, &cert.IsDefault, &cert.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		cert.Environment = domain.Environment(environment)
		out = append(out, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return out, nil
}

// OrgSettingsRepository reads the organization's configured default
// environment. The organizations table is owned elsewhere; this is a
// read-only view of one column.
type OrgSettingsRepository struct {
	db *sql.DB
}

func NewOrgSettingsRepository(db *sql.DB) *OrgSettingsRepository {
	return &OrgSettingsRepository{db: db}
}

func (r *OrgSettingsRepository) DefaultEnvironment(ctx context.Context, orgID string) (domain.Environment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT default_environment FROM organizations WHERE id = $1
`, orgID)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.WrapError(domain.ErrInvalidInput, "default environment",
				fmt.Errorf("organization not found: %s", orgID))
		}
		return "", fmt.Errorf("scan default environment: %w", err)
	}
	env, ok := domain.ParseEnvironment(raw)
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "default environment",
			fmt.Errorf("organization %s has invalid environment %q", orgID, raw))
	}
	return env, nil
}

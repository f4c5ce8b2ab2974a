package domain

import "time"

type Environment string

const (
	EnvDemo Environment = "demo"
	EnvProd Environment = "prod"
)

func ParseEnvironment(raw string) (Environment, bool) {
	switch Environment(raw) {
	case EnvDemo:
		return EnvDemo, true
	case EnvProd:
		return EnvProd, true
	default:
		return "", false
	}
}

// Certificate is the signing identity provisioned for an organization in one
// environment. Rows are created and rotated by provisioning; this subsystem
// only reads them.
type Certificate struct {
	ID             string      `json:"id"`
	OrgID          string      `json:"org_id"`
	Environment    Environment `json:"environment"`
	CertificatePEM string      `json:"-"`
	PrivateKeyPEM  string      `json:"-"`
	CAChainPEM     string      `json:"-"`
	IssuerDN       string      `json:"issuer_dn"`
	FiscalCode     string      `json:"fiscal_code"`
	IssuedAt       time.Time   `json:"issued_at"`
	ExpiresAt      time.Time   `json:"expires_at"`
	IsActive       bool        `json:"is_active"`
	IsDefault      bool        `json:"is_default"`
	CreatedAt      time.Time   `json:"created_at"`
}

func (c *Certificate) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

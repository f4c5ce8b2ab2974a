// Package signing builds the short-lived proof-of-possession token that
// authenticates one request against the regulatory gateways. The token binds
// the organization's fiscal identity to the target environment's audience and
// is signed with the certificate's private key; the remote party verifies it
// with the public certificate already on file.
package signing

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fleetyard/regsync/internal/core/domain"
)

// Audiences are the two fixed per-environment audience strings.
type Audiences struct {
	Demo string
	Prod string
}

type TokenSigner struct {
	audiences Audiences
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenSigner(audiences Audiences, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenSigner{
		audiences: audiences,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Issue signs a compact token for one request. The signing algorithm follows
// the key type: RS256 for RSA keys, ES256 for EC keys. Malformed key material
// is a fatal, non-retryable signing failure.
func (s *TokenSigner) Issue(cert *domain.Certificate, env domain.Environment) (string, error) {
	key, method, err := parseSigningKey([]byte(cert.PrivateKeyPEM))
	if err != nil {
		return "", domain.WrapError(domain.ErrSigning, "issue token", err)
	}

	now := s.now().UTC()
	claims := jwt.MapClaims{
		"iss": cert.FiscalCode,
		"sub": cert.OrgID,
		"aud": s.audience(env),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
		"jti": uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		return "", domain.WrapError(domain.ErrSigning, "issue token", err)
	}
	return signed, nil
}

func (s *TokenSigner) audience(env domain.Environment) string {
	if env == domain.EnvProd {
		return s.audiences.Prod
	}
	return s.audiences.Demo
}

func parseSigningKey(pemBytes []byte) (any, jwt.SigningMethod, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, nil, errors.New("no PEM block in private key material")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		switch typed := key.(type) {
		case *rsa.PrivateKey:
			return typed, jwt.SigningMethodRS256, nil
		case *ecdsa.PrivateKey:
			return typed, jwt.SigningMethodES256, nil
		default:
			return nil, nil, fmt.Errorf("unsupported private key type %T", key)
		}
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, jwt.SigningMethodRS256, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, jwt.SigningMethodES256, nil
	}
	return nil, nil, errors.New("private key is neither PKCS#8, PKCS#1 nor SEC1")
}

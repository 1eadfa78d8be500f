package model

import (
	"context"
	"time"
)

// CertEnvelope carries one stored certificate with its key material. The
// backend identifies an envelope by an opaque cert_ref.
type CertEnvelope struct {
	Certificate          string
	Intermediates        string
	PrivateKey           string
	PrivateKeyPassphrase string
	ProjectID            string
	UserID               string
	ClusterUUID          string
}

// CertStoreOpts tunes a single Store call.
type CertStoreOpts struct {
	Name       string
	Expiration *time.Time
}

// CertStore is the pluggable certificate backend contract. Every backend
// failure is reported as ErrCertificateStorage so callers can trigger the
// partial-failure rollback uniformly; Get/Delete on an unknown ref report
// ErrNotFound.
type CertStore interface {
	Store(ctx context.Context, env *CertEnvelope, opts *CertStoreOpts) (certRef string, err error)
	Get(ctx context.Context, certRef string, checkOnly bool) (*CertEnvelope, error)
	Delete(ctx context.Context, certRef string) error
}

// X509KeyPair is the persisted form of a certificate envelope used by the
// db-backed certificate store.
type X509KeyPair struct {
	ID        int64
	UUID      string
	ProjectID string
	UserID    string

	Name                 string
	Certificate          string
	Intermediates        string
	PrivateKey           string
	PrivateKeyPassphrase string

	CreatedAt time.Time
	UpdatedAt time.Time
}

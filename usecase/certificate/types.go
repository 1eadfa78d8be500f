// Package certificate implements the certificate-manager operations: CA and
// client-certificate generation for a cluster, CSR signing, rotation, and
// teardown. Key material goes through the configured cert store backend and
// never lands on the cluster row.
package certificate

import (
	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

// clientName is the well-known CN of the control-plane client certificate.
const clientName = "stackmint-conductor"

// Repos holds repositories needed for certificate use cases.
type Repos struct {
	Cluster domain.ClusterRepository
}

// UseCase wires the repositories and the cert store backend.
type UseCase struct {
	Repos     *Repos
	CertStore model.CertStore
	// KeySize is the RSA key size; zero means the package default.
	KeySize int
}

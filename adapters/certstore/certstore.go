// Package certstore ships the pluggable certificate backends: barbican
// (external secret store), rdb (x509keypair rows), and a local-file backend
// for development. The backend is chosen by configuration at startup.
package certstore

import (
	"fmt"

	"github.com/gophercloud/gophercloud"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

// Deps carries everything any backend might need; backends pick what they
// use.
type Deps struct {
	// KeyManager builds the barbican backend.
	KeyManager *gophercloud.ServiceClient
	// KeyPairs builds the rdb backend.
	KeyPairs domain.X509KeyPairRepository
	// StoragePath roots the local backend.
	StoragePath string
}

// New selects a backend by name: barbican, x509keypair, or local. The local
// backend is for development only.
func New(backend string, deps Deps) (model.CertStore, error) {
	switch backend {
	case "barbican":
		if deps.KeyManager == nil {
			return nil, fmt.Errorf("%w: barbican backend needs a key-manager client", model.ErrInvalidParameter)
		}
		return &barbicanStore{client: deps.KeyManager}, nil
	case "x509keypair":
		if deps.KeyPairs == nil {
			return nil, fmt.Errorf("%w: x509keypair backend needs a repository", model.ErrInvalidParameter)
		}
		return &rdbStore{keyPairs: deps.KeyPairs}, nil
	case "local":
		if deps.StoragePath == "" {
			return nil, fmt.Errorf("%w: local backend needs a storage path", model.ErrInvalidParameter)
		}
		return &localStore{root: deps.StoragePath}, nil
	default:
		return nil, fmt.Errorf("%w: unknown cert backend %q", model.ErrInvalidParameter, backend)
	}
}

package certstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/stackmint/stackmint/domain/model"
)

// localStore writes envelopes under a directory, one subdirectory per ref.
// Development only: key material lands on disk unprotected beyond file
// permissions.
type localStore struct {
	root string
}

var localFiles = map[string]func(*model.CertEnvelope) *string{
	"certificate.pem":   func(e *model.CertEnvelope) *string { return &e.Certificate },
	"intermediates.pem": func(e *model.CertEnvelope) *string { return &e.Intermediates },
	"private_key.pem":   func(e *model.CertEnvelope) *string { return &e.PrivateKey },
	"passphrase":        func(e *model.CertEnvelope) *string { return &e.PrivateKeyPassphrase },
}

func (s *localStore) Store(ctx context.Context, env *model.CertEnvelope, opts *model.CertStoreOpts) (string, error) {
	ref := uuid.NewString()
	dir := filepath.Join(s.root, ref)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrCertificateStorage, err)
	}
	for name, field := range localFiles {
		content := *field(env)
		if content == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("%w: write %s: %v", model.ErrCertificateStorage, name, err)
		}
	}
	return ref, nil
}

func (s *localStore) Get(ctx context.Context, certRef string, checkOnly bool) (*model.CertEnvelope, error) {
	dir := filepath.Join(s.root, certRef)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: cert ref %s", model.ErrNotFound, certRef)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrCertificateStorage, err)
	}
	env := &model.CertEnvelope{}
	if checkOnly {
		return env, nil
	}
	for name, field := range localFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%w: read %s: %v", model.ErrCertificateStorage, name, err)
		}
		*field(env) = string(data)
	}
	return env, nil
}

func (s *localStore) Delete(ctx context.Context, certRef string) error {
	dir := filepath.Join(s.root, certRef)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: cert ref %s", model.ErrNotFound, certRef)
		}
		return fmt.Errorf("%w: %v", model.ErrCertificateStorage, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: %v", model.ErrCertificateStorage, err)
	}
	return nil
}

var _ model.CertStore = (*localStore)(nil)

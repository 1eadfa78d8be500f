package certstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

// rdbStore persists envelopes as x509keypair rows. The cert_ref is the row
// UUID.
type rdbStore struct {
	keyPairs domain.X509KeyPairRepository
}

func (s *rdbStore) Store(ctx context.Context, env *model.CertEnvelope, opts *model.CertStoreOpts) (string, error) {
	kp := &model.X509KeyPair{
		ProjectID:            env.ProjectID,
		UserID:               env.UserID,
		Certificate:          env.Certificate,
		Intermediates:        env.Intermediates,
		PrivateKey:           env.PrivateKey,
		PrivateKeyPassphrase: env.PrivateKeyPassphrase,
	}
	if opts != nil {
		kp.Name = opts.Name
	}
	if err := s.keyPairs.Create(ctx, model.AdminContext(), kp); err != nil {
		return "", fmt.Errorf("%w: store keypair: %v", model.ErrCertificateStorage, err)
	}
	return kp.UUID, nil
}

func (s *rdbStore) Get(ctx context.Context, certRef string, checkOnly bool) (*model.CertEnvelope, error) {
	kp, err := s.keyPairs.Get(ctx, model.AdminContext(), certRef)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get keypair: %v", model.ErrCertificateStorage, err)
	}
	env := &model.CertEnvelope{
		ProjectID: kp.ProjectID,
		UserID:    kp.UserID,
	}
	if checkOnly {
		return env, nil
	}
	env.Certificate = kp.Certificate
	env.Intermediates = kp.Intermediates
	env.PrivateKey = kp.PrivateKey
	env.PrivateKeyPassphrase = kp.PrivateKeyPassphrase
	return env, nil
}

func (s *rdbStore) Delete(ctx context.Context, certRef string) error {
	if err := s.keyPairs.Destroy(ctx, model.AdminContext(), certRef); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: delete keypair: %v", model.ErrCertificateStorage, err)
	}
	return nil
}

var _ model.CertStore = (*rdbStore)(nil)

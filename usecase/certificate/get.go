package certificate

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/x509util"
)

// GetCAInput identifies the cluster whose CA certificate is wanted.
type GetCAInput struct {
	ClusterIdent string `json:"cluster_ident"`
}

// GetCAOutput carries the CA certificate PEM, never the key.
type GetCAOutput struct {
	Certificate string `json:"certificate"`
}

// GetCA returns the cluster's CA certificate.
func (u *UseCase) GetCA(ctx context.Context, rctx *model.RequestContext, in *GetCAInput) (*GetCAOutput, error) {
	cluster, err := u.Repos.Cluster.Get(ctx, rctx, in.ClusterIdent)
	if err != nil {
		return nil, err
	}
	if cluster.CACertRef == "" {
		return nil, fmt.Errorf("%w: cluster %s has no CA", model.ErrNotFound, cluster.UUID)
	}
	env, err := u.CertStore.Get(ctx, cluster.CACertRef, false)
	if err != nil {
		return nil, err
	}
	return &GetCAOutput{Certificate: env.Certificate}, nil
}

// TLSCredentials assembles the decrypted client credentials a monitor needs
// to reach the cluster API.
func (u *UseCase) TLSCredentials(ctx context.Context, cluster *model.Cluster) (*model.TLSCredentials, error) {
	if cluster.CACertRef == "" || cluster.ClientCertRef == "" {
		return nil, fmt.Errorf("%w: cluster %s has no stored certificates", model.ErrNotFound, cluster.UUID)
	}
	caEnv, err := u.CertStore.Get(ctx, cluster.CACertRef, false)
	if err != nil {
		return nil, err
	}
	clientEnv, err := u.CertStore.Get(ctx, cluster.ClientCertRef, false)
	if err != nil {
		return nil, err
	}
	key, err := x509util.DecryptKeyPEM(clientEnv.PrivateKey, clientEnv.PrivateKeyPassphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt client key for cluster %s: %w", cluster.UUID, err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return &model.TLSCredentials{
		CACert:     []byte(caEnv.Certificate),
		ClientCert: []byte(clientEnv.Certificate),
		ClientKey:  keyPEM,
	}, nil
}

// loadCA fetches and decrypts a CA envelope.
func (u *UseCase) loadCA(ctx context.Context, caCertRef string) (*model.CertEnvelope, *rsa.PrivateKey, error) {
	if caCertRef == "" {
		return nil, nil, fmt.Errorf("%w: cluster has no CA", model.ErrNotFound)
	}
	env, err := u.CertStore.Get(ctx, caCertRef, false)
	if err != nil {
		return nil, nil, err
	}
	key, err := x509util.DecryptKeyPEM(env.PrivateKey, env.PrivateKeyPassphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("decrypt ca key: %w", err)
	}
	return env, key, nil
}

package certificate

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
	"github.com/stackmint/stackmint/internal/x509util"
)

// GenerateInput identifies the cluster to mint certificates for.
type GenerateInput struct {
	Cluster *model.Cluster `json:"cluster"`
	// ExtraCAs also mints the etcd and front-proxy CAs (Kubernetes
	// clusters).
	ExtraCAs bool `json:"extra_cas"`
}

// GenerateOutput carries the stored cert refs.
type GenerateOutput struct {
	CACertRef           string `json:"ca_cert_ref"`
	ClientCertRef       string `json:"client_cert_ref"`
	EtcdCACertRef       string `json:"etcd_ca_cert_ref,omitempty"`
	FrontProxyCACertRef string `json:"front_proxy_ca_cert_ref,omitempty"`
}

// ca is generated CA material kept in memory only long enough to sign the
// client certificate.
type ca struct {
	certPEM string
	keyPair *x509util.KeyPair
	ref     string
}

// Generate mints the cluster CA and the control-plane client certificate,
// plus the auxiliary CAs when requested. If any store step fails, every ref
// stored so far is rolled back and the original error returned.
func (u *UseCase) Generate(ctx context.Context, in *GenerateInput) (*GenerateOutput, error) {
	if in == nil || in.Cluster == nil {
		return nil, fmt.Errorf("%w: no cluster", model.ErrInvalidParameter)
	}
	cluster := in.Cluster
	var stored []string

	fail := func(err error) (*GenerateOutput, error) {
		u.rollback(ctx, stored)
		return nil, err
	}

	primary, err := u.generateCA(ctx, cluster, cluster.Name)
	if err != nil {
		return fail(err)
	}
	stored = append(stored, primary.ref)

	clientRef, err := u.generateClient(ctx, cluster, primary)
	if err != nil {
		return fail(err)
	}
	stored = append(stored, clientRef)

	out := &GenerateOutput{CACertRef: primary.ref, ClientCertRef: clientRef}
	if in.ExtraCAs {
		etcd, err := u.generateCA(ctx, cluster, cluster.Name+"-etcd")
		if err != nil {
			return fail(err)
		}
		stored = append(stored, etcd.ref)
		out.EtcdCACertRef = etcd.ref

		proxy, err := u.generateCA(ctx, cluster, cluster.Name+"-front-proxy")
		if err != nil {
			return fail(err)
		}
		stored = append(stored, proxy.ref)
		out.FrontProxyCACertRef = proxy.ref
	}

	logging.FromContext(ctx).Info(ctx, "cluster certificates stored",
		"cluster_uuid", cluster.UUID, "refs", len(stored))
	return out, nil
}

func (u *UseCase) generateCA(ctx context.Context, cluster *model.Cluster, cn string) (*ca, error) {
	kp, err := x509util.GenerateKeyPair(u.KeySize)
	if err != nil {
		return nil, err
	}
	certPEM, err := x509util.GenerateCA(cn, kp)
	if err != nil {
		return nil, err
	}
	passphrase, err := x509util.NewPassphrase()
	if err != nil {
		return nil, err
	}
	keyPEM, err := kp.EncryptKeyPEM(passphrase)
	if err != nil {
		return nil, err
	}
	ref, err := u.CertStore.Store(ctx, &model.CertEnvelope{
		Certificate:          certPEM,
		PrivateKey:           keyPEM,
		PrivateKeyPassphrase: passphrase,
		ProjectID:            cluster.ProjectID,
		UserID:               cluster.UserID,
		ClusterUUID:          cluster.UUID,
	}, &model.CertStoreOpts{Name: cn + "-ca"})
	if err != nil {
		return nil, err
	}
	return &ca{certPEM: certPEM, keyPair: kp, ref: ref}, nil
}

func (u *UseCase) generateClient(ctx context.Context, cluster *model.Cluster, signer *ca) (string, error) {
	kp, err := x509util.GenerateKeyPair(u.KeySize)
	if err != nil {
		return "", err
	}
	certPEM, err := x509util.SignClientCert(clientName, kp, signer.certPEM, signer.keyPair.Key)
	if err != nil {
		return "", err
	}
	passphrase, err := x509util.NewPassphrase()
	if err != nil {
		return "", err
	}
	keyPEM, err := kp.EncryptKeyPEM(passphrase)
	if err != nil {
		return "", err
	}
	return u.CertStore.Store(ctx, &model.CertEnvelope{
		Certificate:          certPEM,
		PrivateKey:           keyPEM,
		PrivateKeyPassphrase: passphrase,
		ProjectID:            cluster.ProjectID,
		UserID:               cluster.UserID,
		ClusterUUID:          cluster.UUID,
	}, &model.CertStoreOpts{Name: cluster.Name + "-client"})
}

// rollback deletes refs already stored after a partial failure, best effort.
func (u *UseCase) rollback(ctx context.Context, refs []string) {
	log := logging.FromContext(ctx)
	for _, ref := range refs {
		if err := u.CertStore.Delete(ctx, ref); err != nil {
			log.Warn(ctx, "certificate left behind after rollback", "cert_ref", ref, "error", err)
		}
	}
}

package certificate

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/x509util"
)

// SignInput carries a PEM certificate signing request for a cluster.
type SignInput struct {
	ClusterIdent string `json:"cluster_ident"`
	CSR          string `json:"csr"`
}

// SignOutput carries the signed certificate and the CA it chains to.
type SignOutput struct {
	Certificate   string `json:"certificate"`
	CACertificate string `json:"ca_certificate"`
}

// Sign signs a CSR under the cluster's CA. The returned PEM is
// whitespace-trimmed. An unparseable or unverifiable CSR reports
// ErrInvalidCsr.
func (u *UseCase) Sign(ctx context.Context, rctx *model.RequestContext, in *SignInput) (*SignOutput, error) {
	if in == nil || in.CSR == "" {
		return nil, fmt.Errorf("%w: empty csr", model.ErrInvalidCsr)
	}
	cluster, err := u.Repos.Cluster.Get(ctx, rctx, in.ClusterIdent)
	if err != nil {
		return nil, err
	}
	caEnv, caKey, err := u.loadCA(ctx, cluster.CACertRef)
	if err != nil {
		return nil, err
	}
	certPEM, err := x509util.SignCSR(in.CSR, caEnv.Certificate, caKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidCsr, err)
	}
	return &SignOutput{Certificate: certPEM, CACertificate: caEnv.Certificate}, nil
}

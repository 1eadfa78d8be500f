package certificate

import (
	"context"
	"errors"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// DeleteInput carries the cluster whose certificates are torn down.
type DeleteInput struct {
	Cluster *model.Cluster `json:"cluster"`
}

// DeleteOutput is empty; delete has no payload.
type DeleteOutput struct{}

// Delete removes every certificate the cluster references. Missing refs are
// ignored so teardown stays idempotent.
func (u *UseCase) Delete(ctx context.Context, in *DeleteInput) (*DeleteOutput, error) {
	if in == nil || in.Cluster == nil {
		return &DeleteOutput{}, nil
	}
	log := logging.FromContext(ctx)
	refs := []string{
		in.Cluster.CACertRef,
		in.Cluster.ClientCertRef,
		in.Cluster.EtcdCACertRef,
		in.Cluster.FrontProxyCACertRef,
	}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := u.CertStore.Delete(ctx, ref); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return nil, err
		}
		log.Debug(ctx, "certificate deleted", "cluster_uuid", in.Cluster.UUID, "cert_ref", ref)
	}
	return &DeleteOutput{}, nil
}

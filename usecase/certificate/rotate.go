package certificate

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// RotateInput identifies the cluster whose CA is rotated.
type RotateInput struct {
	ClusterIdent string `json:"cluster_ident"`
}

// RotateOutput carries the refreshed cert refs.
type RotateOutput struct {
	CACertRef     string `json:"ca_cert_ref"`
	ClientCertRef string `json:"client_cert_ref"`
}

// Rotate mints a fresh CA and client certificate for the cluster, repoints
// the cluster refs, and deletes the old material. Workloads keep running;
// API clients must refresh their credentials afterwards.
func (u *UseCase) Rotate(ctx context.Context, rctx *model.RequestContext, in *RotateInput) (*RotateOutput, error) {
	cluster, err := u.Repos.Cluster.Get(ctx, rctx, in.ClusterIdent)
	if err != nil {
		return nil, err
	}
	if cluster.Status.InProgress() {
		return nil, fmt.Errorf("%w: cluster %s is %s", model.ErrInvalidClusterState, cluster.UUID, cluster.Status)
	}

	next, err := u.generateCA(ctx, cluster, cluster.Name)
	if err != nil {
		return nil, err
	}
	clientRef, err := u.generateClient(ctx, cluster, next)
	if err != nil {
		u.rollback(ctx, []string{next.ref})
		return nil, err
	}

	oldCA, oldClient := cluster.CACertRef, cluster.ClientCertRef
	_, err = u.Repos.Cluster.Update(ctx, rctx, cluster.UUID, map[string]interface{}{
		"ca_cert_ref":     next.ref,
		"client_cert_ref": clientRef,
	})
	if err != nil {
		u.rollback(ctx, []string{next.ref, clientRef})
		return nil, err
	}

	// Old material is dead weight once the refs moved.
	u.rollback(ctx, []string{oldCA, oldClient})
	logging.FromContext(ctx).Info(ctx, "cluster ca rotated", "cluster_uuid", cluster.UUID)
	return &RotateOutput{CACertRef: next.ref, ClientCertRef: clientRef}, nil
}

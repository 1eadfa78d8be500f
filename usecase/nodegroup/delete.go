package nodegroup

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// DeleteInput identifies the node group to delete.
type DeleteInput struct {
	Cluster string `json:"cluster"`
	Ident   string `json:"ident"`
}

// DeleteOutput is empty; delete has no payload.
type DeleteOutput struct{}

// Delete removes a non-default node group. The default master and worker
// groups live and die with the cluster.
func (u *UseCase) Delete(ctx context.Context, rctx *model.RequestContext, in *DeleteInput) (*DeleteOutput, error) {
	if in == nil || in.Ident == "" {
		return nil, fmt.Errorf("%w: node group ident is required", model.ErrInvalidParameter)
	}
	c, err := u.Repos.Cluster.Get(ctx, rctx, in.Cluster)
	if err != nil {
		return nil, err
	}
	ng, err := u.Repos.NodeGroup.Get(ctx, rctx, c.UUID, in.Ident)
	if err != nil {
		return nil, err
	}
	if ng.IsDefault {
		return nil, fmt.Errorf("%w: default node group %s cannot be deleted", model.ErrInvalidParameter, ng.Name)
	}
	if err := u.Repos.NodeGroup.Destroy(ctx, rctx, ng.UUID); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "node group deleted",
		"cluster_uuid", c.UUID, "nodegroup_uuid", ng.UUID, "name", ng.Name)
	return &DeleteOutput{}, nil
}

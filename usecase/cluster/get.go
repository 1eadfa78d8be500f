package cluster

import (
	"context"

	"github.com/stackmint/stackmint/domain/model"
)

// GetInput identifies a cluster by uuid or name.
type GetInput struct {
	Ident string `json:"ident"`
}

// GetOutput carries the cluster with its node groups.
type GetOutput struct {
	Cluster    *model.Cluster     `json:"cluster"`
	NodeGroups []*model.NodeGroup `json:"node_groups"`
}

// Get resolves a cluster within the caller's tenant scope.
func (u *UseCase) Get(ctx context.Context, rctx *model.RequestContext, in *GetInput) (*GetOutput, error) {
	c, err := u.Repos.Cluster.Get(ctx, rctx, in.Ident)
	if err != nil {
		return nil, err
	}
	groups, err := u.Repos.NodeGroup.ListByCluster(ctx, rctx, c.UUID, domainListAll())
	if err != nil {
		return nil, err
	}
	return &GetOutput{Cluster: c, NodeGroups: groups}, nil
}

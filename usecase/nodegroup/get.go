package nodegroup

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

// GetInput identifies a node group within a cluster by uuid or name.
type GetInput struct {
	Cluster string `json:"cluster"`
	Ident   string `json:"ident"`
}

// GetOutput wraps the node group.
type GetOutput struct {
	NodeGroup *model.NodeGroup `json:"nodegroup"`
}

// Get resolves one node group.
func (u *UseCase) Get(ctx context.Context, rctx *model.RequestContext, in *GetInput) (*GetOutput, error) {
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
	return &GetOutput{NodeGroup: ng}, nil
}

// ListInput carries the owning cluster plus pagination options.
type ListInput struct {
	Cluster string `json:"cluster"`
	Limit   int    `json:"limit,omitempty"`
	Marker  string `json:"marker,omitempty"`
	SortKey string `json:"sort_key,omitempty"`
	SortDir string `json:"sort_dir,omitempty"`
}

// ListOutput carries one page of node groups.
type ListOutput struct {
	NodeGroups []*model.NodeGroup `json:"nodegroups"`
}

// List returns the cluster's node groups.
func (u *UseCase) List(ctx context.Context, rctx *model.RequestContext, in *ListInput) (*ListOutput, error) {
	if in == nil || in.Cluster == "" {
		return nil, fmt.Errorf("%w: cluster ident is required", model.ErrInvalidParameter)
	}
	c, err := u.Repos.Cluster.Get(ctx, rctx, in.Cluster)
	if err != nil {
		return nil, err
	}
	groups, err := u.Repos.NodeGroup.ListByCluster(ctx, rctx, c.UUID, domain.ListOpts{
		Limit:   in.Limit,
		Marker:  in.Marker,
		SortKey: in.SortKey,
		SortDir: domain.SortDir(in.SortDir),
	})
	if err != nil {
		return nil, err
	}
	return &ListOutput{NodeGroups: groups}, nil
}

package nodegroup

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
)

// UpdateInput is a partial node group patch. Only the sizing bounds and
// labels are mutable here; node_count itself moves through the cluster
// resize verb so the stack is re-rendered alongside the record.
type UpdateInput struct {
	Cluster      string            `json:"cluster"`
	Ident        string            `json:"ident"`
	NodeCount    *int              `json:"node_count,omitempty"`
	MinNodeCount *int              `json:"min_node_count,omitempty"`
	MaxNodeCount *int              `json:"max_node_count,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
}

// UpdateOutput wraps the updated node group.
type UpdateOutput struct {
	NodeGroup *model.NodeGroup `json:"nodegroup"`
}

// Update patches the group after re-validating the count invariants against
// the would-be result.
func (u *UseCase) Update(ctx context.Context, rctx *model.RequestContext, in *UpdateInput) (*UpdateOutput, error) {
	if in == nil || in.Ident == "" {
		return nil, fmt.Errorf("%w: node group ident is required", model.ErrInvalidParameter)
	}
	if in.NodeCount != nil {
		return nil, fmt.Errorf("%w: node_count changes go through cluster resize", model.ErrInvalidParameter)
	}
	c, err := u.Repos.Cluster.Get(ctx, rctx, in.Cluster)
	if err != nil {
		return nil, err
	}
	ng, err := u.Repos.NodeGroup.Get(ctx, rctx, c.UUID, in.Ident)
	if err != nil {
		return nil, err
	}

	next := *ng
	updates := map[string]interface{}{}
	if in.MinNodeCount != nil {
		next.MinNodeCount = *in.MinNodeCount
		updates["min_node_count"] = *in.MinNodeCount
	}
	if in.MaxNodeCount != nil {
		next.MaxNodeCount = in.MaxNodeCount
		updates["max_node_count"] = in.MaxNodeCount
	}
	if in.Labels != nil {
		updates["labels"] = in.Labels
	}
	if err := next.ValidateCounts(); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return &UpdateOutput{NodeGroup: ng}, nil
	}
	updated, err := u.Repos.NodeGroup.Update(ctx, rctx, ng.UUID, updates)
	if err != nil {
		return nil, err
	}
	return &UpdateOutput{NodeGroup: updated}, nil
}

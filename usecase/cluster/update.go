package cluster

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// mutableFields are the only cluster attributes an update may touch.
var mutableFields = map[string]bool{
	"node_count": true,
	"labels":     true,
}

// UpdateInput is a restricted patch: worker node count and labels only.
// Anything else on the cluster is immutable after creation.
type UpdateInput struct {
	Ident     string            `json:"ident"`
	NodeCount *int              `json:"node_count,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	// Rejected names end up here from transport layers that parse patches.
	Immutable []string `json:"-"`
}

// UpdateOutput wraps the cluster after the update was accepted.
type UpdateOutput struct {
	Cluster *model.Cluster `json:"cluster"`
}

// Update applies a restricted patch and re-renders the stack in place.
func (u *UseCase) Update(ctx context.Context, rctx *model.RequestContext, in *UpdateInput) (*UpdateOutput, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: empty update", model.ErrInvalidParameter)
	}
	for _, name := range in.Immutable {
		if !mutableFields[name] {
			return nil, fmt.Errorf("%w: field %q is immutable", model.ErrInvalidParameter, name)
		}
	}
	c, err := u.Repos.Cluster.Get(ctx, rctx, in.Ident)
	if err != nil {
		return nil, err
	}
	if !c.Status.AllowsUpdate() {
		return nil, fmt.Errorf("%w: cluster %s is %s", model.ErrInvalidClusterState, c.UUID, c.Status)
	}

	if in.NodeCount != nil {
		if err := u.resizeGroup(ctx, rctx, c, "default-worker", *in.NodeCount, nil, nil); err != nil {
			return nil, err
		}
	}
	if in.Labels != nil {
		if _, err := u.Repos.Cluster.Update(ctx, rctx, c.UUID, map[string]interface{}{
			"labels": mergeLabels(c.Labels, in.Labels),
		}); err != nil {
			return nil, err
		}
	}

	updated, err := u.submitUpdate(ctx, rctx, c.UUID)
	if err != nil {
		return nil, err
	}
	return &UpdateOutput{Cluster: updated}, nil
}

// ResizeInput changes the node count of one named group.
type ResizeInput struct {
	Ident        string `json:"ident"`
	NodeGroup    string `json:"node_group,omitempty"` // default-worker when empty
	NodeCount    int    `json:"node_count"`
	MinNodeCount *int   `json:"min_node_count,omitempty"`
	MaxNodeCount *int   `json:"max_node_count,omitempty"`
}

// ResizeOutput wraps the cluster after the resize was accepted.
type ResizeOutput struct {
	Cluster *model.Cluster `json:"cluster"`
}

// Resize scales a node group and re-renders the stack in place.
func (u *UseCase) Resize(ctx context.Context, rctx *model.RequestContext, in *ResizeInput) (*ResizeOutput, error) {
	if in == nil || in.Ident == "" {
		return nil, fmt.Errorf("%w: cluster ident is required", model.ErrInvalidParameter)
	}
	c, err := u.Repos.Cluster.Get(ctx, rctx, in.Ident)
	if err != nil {
		return nil, err
	}
	if !c.Status.AllowsUpdate() {
		return nil, fmt.Errorf("%w: cluster %s is %s", model.ErrInvalidClusterState, c.UUID, c.Status)
	}
	group := in.NodeGroup
	if group == "" {
		group = "default-worker"
	}
	if err := u.resizeGroup(ctx, rctx, c, group, in.NodeCount, in.MinNodeCount, in.MaxNodeCount); err != nil {
		return nil, err
	}
	updated, err := u.submitUpdate(ctx, rctx, c.UUID)
	if err != nil {
		return nil, err
	}
	return &ResizeOutput{Cluster: updated}, nil
}

func (u *UseCase) resizeGroup(ctx context.Context, rctx *model.RequestContext, c *model.Cluster, groupIdent string, nodeCount int, minCount, maxCount *int) error {
	ng, err := u.Repos.NodeGroup.Get(ctx, rctx, c.UUID, groupIdent)
	if err != nil {
		return err
	}
	// Control-plane size is fixed at create time.
	if ng.Role == model.NodeGroupRoleMaster {
		return fmt.Errorf("%w: master node group %s cannot be resized", model.ErrInvalidParameter, ng.Name)
	}
	next := *ng
	next.NodeCount = nodeCount
	if minCount != nil {
		next.MinNodeCount = *minCount
	}
	if maxCount != nil {
		next.MaxNodeCount = maxCount
	}
	if err := next.ValidateCounts(); err != nil {
		return err
	}
	updates := map[string]interface{}{"node_count": nodeCount}
	if minCount != nil {
		updates["min_node_count"] = *minCount
	}
	if maxCount != nil {
		updates["max_node_count"] = maxCount
	}
	_, err = u.Repos.NodeGroup.Update(ctx, rctx, ng.UUID, updates)
	return err
}

// submitUpdate re-renders the template parameters from the updated model and
// updates the stack under the same stack id.
func (u *UseCase) submitUpdate(ctx context.Context, rctx *model.RequestContext, clusterUUID string) (*model.Cluster, error) {
	c, err := u.Repos.Cluster.Get(ctx, rctx, clusterUUID)
	if err != nil {
		return nil, err
	}
	tpl, err := u.Repos.ClusterTemplate.Get(ctx, rctx, c.ClusterTemplateID)
	if err != nil {
		return nil, err
	}
	driver, err := u.ResolveDriver(tpl)
	if err != nil {
		return nil, err
	}
	groups, err := u.Repos.NodeGroup.ListByCluster(ctx, rctx, c.UUID, domainListAll())
	if err != nil {
		return nil, err
	}
	params, err := driver.GetParams(ctx, tpl, c, groups, u.trusteeParams(c))
	if err != nil {
		return nil, err
	}
	if err := u.Ports.Stack.Update(ctx, &model.StackUpdateRequest{
		StackID:      c.StackID,
		TemplatePath: driver.TemplatePath(),
		Parameters:   params,
		TimeoutMins:  c.CreateTimeout,
	}); err != nil {
		return nil, err
	}
	updated, err := u.Repos.Cluster.Update(ctx, rctx, c.UUID, map[string]interface{}{
		"status":        model.StatusUpdateInProgress,
		"status_reason": "cluster update started",
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "cluster update accepted",
		"cluster_uuid", c.UUID, "stack_id", c.StackID)
	return updated, nil
}

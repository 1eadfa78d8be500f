package cluster

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// UpgradeInput points the cluster at a newer template.
type UpgradeInput struct {
	Ident           string `json:"ident"`
	ClusterTemplate string `json:"cluster_template"`
}

// UpgradeOutput wraps the cluster after the upgrade was accepted.
type UpgradeOutput struct {
	Cluster *model.Cluster `json:"cluster"`
}

// Upgrade re-renders the stack against a new template. The target template
// must provision the same COE on the same server type; anything else is a
// rebuild, not an upgrade.
func (u *UseCase) Upgrade(ctx context.Context, rctx *model.RequestContext, in *UpgradeInput) (*UpgradeOutput, error) {
	if in == nil || in.ClusterTemplate == "" {
		return nil, fmt.Errorf("%w: target cluster_template is required", model.ErrInvalidParameter)
	}
	c, err := u.Repos.Cluster.Get(ctx, rctx, in.Ident)
	if err != nil {
		return nil, err
	}
	if !c.Status.AllowsUpdate() {
		return nil, fmt.Errorf("%w: cluster %s is %s", model.ErrInvalidClusterState, c.UUID, c.Status)
	}
	current, err := u.Repos.ClusterTemplate.Get(ctx, rctx, c.ClusterTemplateID)
	if err != nil {
		return nil, err
	}
	target, err := u.Repos.ClusterTemplate.Get(ctx, rctx, in.ClusterTemplate)
	if err != nil {
		return nil, err
	}
	if target.COE != current.COE || target.ServerType != current.ServerType {
		return nil, fmt.Errorf("%w: upgrade cannot change COE or server type", model.ErrInvalidParameter)
	}
	if _, err := u.Repos.Cluster.Update(ctx, rctx, c.UUID, map[string]interface{}{
		"cluster_template_id": target.UUID,
	}); err != nil {
		return nil, err
	}
	updated, err := u.submitUpdate(ctx, rctx, c.UUID)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "cluster upgrade accepted",
		"cluster_uuid", c.UUID, "template_uuid", target.UUID)
	return &UpgradeOutput{Cluster: updated}, nil
}

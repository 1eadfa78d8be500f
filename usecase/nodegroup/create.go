package nodegroup

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// CreateInput is the node group draft. Flavor and ImageID fall back to the
// cluster and its template when empty.
type CreateInput struct {
	Cluster          string              `json:"cluster"`
	Name             string              `json:"name"`
	Role             model.NodeGroupRole `json:"role,omitempty"`
	Flavor           string              `json:"flavor,omitempty"`
	ImageID          string              `json:"image_id,omitempty"`
	DockerVolumeSize int                 `json:"docker_volume_size,omitempty"`
	Labels           map[string]string   `json:"labels,omitempty"`
	NodeCount        int                 `json:"node_count,omitempty"`
	MinNodeCount     int                 `json:"min_node_count,omitempty"`
	MaxNodeCount     *int                `json:"max_node_count,omitempty"`
}

// CreateOutput wraps the persisted node group.
type CreateOutput struct {
	NodeGroup *model.NodeGroup `json:"nodegroup"`
}

// Create adds a worker group to a settled cluster. Additional master groups
// are not supported: the control plane is sized once, at cluster create.
func (u *UseCase) Create(ctx context.Context, rctx *model.RequestContext, in *CreateInput) (*CreateOutput, error) {
	if in == nil || in.Name == "" {
		return nil, fmt.Errorf("%w: node group name is required", model.ErrInvalidParameter)
	}
	if in.Role == model.NodeGroupRoleMaster {
		return nil, fmt.Errorf("%w: master node groups cannot be added to an existing cluster", model.ErrInvalidParameter)
	}
	c, err := u.Repos.Cluster.Get(ctx, rctx, in.Cluster)
	if err != nil {
		return nil, err
	}
	if !c.Status.AllowsUpdate() {
		return nil, fmt.Errorf("%w: cluster %s is %s", model.ErrInvalidClusterState, c.UUID, c.Status)
	}
	tpl, err := u.Repos.ClusterTemplate.Get(ctx, rctx, c.ClusterTemplateID)
	if err != nil {
		return nil, err
	}

	nodeCount := in.NodeCount
	if nodeCount <= 0 {
		nodeCount = 1
	}
	ng := &model.NodeGroup{
		Name:             in.Name,
		ClusterID:        c.UUID,
		ProjectID:        c.ProjectID,
		Role:             model.NodeGroupRoleWorker,
		Flavor:           firstNonEmpty(in.Flavor, c.Flavor, tpl.Flavor),
		ImageID:          firstNonEmpty(in.ImageID, tpl.ImageID),
		DockerVolumeSize: in.DockerVolumeSize,
		Labels:           in.Labels,
		NodeCount:        nodeCount,
		MinNodeCount:     in.MinNodeCount,
		MaxNodeCount:     in.MaxNodeCount,
		Status:           model.StatusCreateInProgress,
	}
	if err := ng.ValidateCounts(); err != nil {
		return nil, err
	}
	if err := u.Repos.NodeGroup.Create(ctx, rctx, ng); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "node group created",
		"cluster_uuid", c.UUID, "nodegroup_uuid", ng.UUID, "name", ng.Name)
	return &CreateOutput{NodeGroup: ng}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package clustertemplate

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// DeleteInput identifies the template to delete.
type DeleteInput struct {
	Ident string `json:"ident"`
}

// DeleteOutput is empty; delete has no payload.
type DeleteOutput struct{}

// Delete removes the template unless any cluster still references it.
func (u *UseCase) Delete(ctx context.Context, rctx *model.RequestContext, in *DeleteInput) (*DeleteOutput, error) {
	if in == nil || in.Ident == "" {
		return nil, fmt.Errorf("%w: template ident is required", model.ErrInvalidParameter)
	}
	t, err := u.Repos.ClusterTemplate.Get(ctx, rctx, in.Ident)
	if err != nil {
		return nil, err
	}
	refs, err := u.Repos.Cluster.CountByTemplate(ctx, t.UUID)
	if err != nil {
		return nil, err
	}
	if refs > 0 {
		return nil, fmt.Errorf("%w: %d clusters use template %s",
			model.ErrClusterTemplateReferenced, refs, t.UUID)
	}
	if err := u.Repos.ClusterTemplate.Destroy(ctx, rctx, t.UUID); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "cluster template deleted",
		"template_uuid", t.UUID, "name", t.Name)
	return &DeleteOutput{}, nil
}

package clustertemplate

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
)

// GetInput identifies a template by uuid or name.
type GetInput struct {
	Ident string `json:"ident"`
}

// GetOutput wraps the template.
type GetOutput struct {
	ClusterTemplate *model.ClusterTemplate `json:"cluster_template"`
}

// Get resolves one template within the caller's visibility.
func (u *UseCase) Get(ctx context.Context, rctx *model.RequestContext, in *GetInput) (*GetOutput, error) {
	if in == nil || in.Ident == "" {
		return nil, fmt.Errorf("%w: template ident is required", model.ErrInvalidParameter)
	}
	t, err := u.Repos.ClusterTemplate.Get(ctx, rctx, in.Ident)
	if err != nil {
		return nil, err
	}
	return &GetOutput{ClusterTemplate: t}, nil
}

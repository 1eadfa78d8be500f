package clustertemplate

import (
	"context"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

// ListInput carries filtering and pagination options.
type ListInput struct {
	Filters map[string]interface{} `json:"filters,omitempty"`
	Limit   int                    `json:"limit,omitempty"`
	Marker  string                 `json:"marker,omitempty"`
	SortKey string                 `json:"sort_key,omitempty"`
	SortDir string                 `json:"sort_dir,omitempty"`
}

// ListOutput carries one page of templates.
type ListOutput struct {
	ClusterTemplates []*model.ClusterTemplate `json:"cluster_templates"`
}

// List returns the templates visible to the caller, including public
// non-hidden templates from other tenants.
func (u *UseCase) List(ctx context.Context, rctx *model.RequestContext, in *ListInput) (*ListOutput, error) {
	opts := domain.ListOpts{}
	if in != nil {
		opts = domain.ListOpts{
			Filters: in.Filters,
			Limit:   in.Limit,
			Marker:  in.Marker,
			SortKey: in.SortKey,
			SortDir: domain.SortDir(in.SortDir),
		}
	}
	templates, err := u.Repos.ClusterTemplate.List(ctx, rctx, opts)
	if err != nil {
		return nil, err
	}
	return &ListOutput{ClusterTemplates: templates}, nil
}

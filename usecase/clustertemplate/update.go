package clustertemplate

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
)

// UpdateInput is a partial template patch. The always-mutable attributes have
// dedicated fields; everything else travels in Patch keyed by column name and
// is only accepted while no cluster references the template.
type UpdateInput struct {
	Ident  string                 `json:"ident"`
	Name   *string                `json:"name,omitempty"`
	Public *bool                  `json:"public,omitempty"`
	Hidden *bool                  `json:"hidden,omitempty"`
	Tags   *string                `json:"tags,omitempty"`
	Patch  map[string]interface{} `json:"patch,omitempty"`
}

// UpdateOutput wraps the updated template.
type UpdateOutput struct {
	ClusterTemplate *model.ClusterTemplate `json:"cluster_template"`
}

// Update applies the patch. While clusters reference the template only name,
// public, hidden and tags may change; a Patch entry in that state is rejected
// with ErrClusterTemplateReferenced.
func (u *UseCase) Update(ctx context.Context, rctx *model.RequestContext, in *UpdateInput) (*UpdateOutput, error) {
	if in == nil || in.Ident == "" {
		return nil, fmt.Errorf("%w: template ident is required", model.ErrInvalidParameter)
	}
	t, err := u.Repos.ClusterTemplate.Get(ctx, rctx, in.Ident)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Public != nil {
		updates["public"] = *in.Public
	}
	if in.Hidden != nil {
		updates["hidden"] = *in.Hidden
	}
	if in.Tags != nil {
		updates["tags"] = *in.Tags
	}
	for k, v := range in.Patch {
		if model.MutableWhileReferenced[k] {
			updates[k] = v
			continue
		}
		refs, err := u.Repos.Cluster.CountByTemplate(ctx, t.UUID)
		if err != nil {
			return nil, err
		}
		if refs > 0 {
			return nil, fmt.Errorf("%w: %d clusters use template %s, cannot change %q",
				model.ErrClusterTemplateReferenced, refs, t.UUID, k)
		}
		updates[k] = v
	}
	if len(updates) == 0 {
		return &UpdateOutput{ClusterTemplate: t}, nil
	}

	updated, err := u.Repos.ClusterTemplate.Update(ctx, rctx, t.UUID, updates)
	if err != nil {
		return nil, err
	}
	return &UpdateOutput{ClusterTemplate: updated}, nil
}

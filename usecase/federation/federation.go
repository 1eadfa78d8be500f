// Package federation implements CRUD for cluster federations. A federation
// is a persisted grouping of member clusters under a host cluster; nothing
// here drives a lifecycle.
package federation

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// Repos holds repositories needed for federation use cases.
type Repos struct {
	Federation domain.FederationRepository
	// Cluster resolves and validates host and member references.
	Cluster domain.ClusterRepository
}

// UseCase implements the federation operations.
type UseCase struct {
	Repos *Repos
}

// CreateInput is the federation draft. HostCluster must resolve within the
// caller's scope.
type CreateInput struct {
	Name        string            `json:"name"`
	HostCluster string            `json:"host_cluster"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// CreateOutput wraps the persisted federation.
type CreateOutput struct {
	Federation *model.Federation `json:"federation"`
}

// Create persists a federation around an existing host cluster.
func (u *UseCase) Create(ctx context.Context, rctx *model.RequestContext, in *CreateInput) (*CreateOutput, error) {
	if in == nil || in.Name == "" {
		return nil, fmt.Errorf("%w: federation name is required", model.ErrInvalidParameter)
	}
	if in.HostCluster == "" {
		return nil, fmt.Errorf("%w: host_cluster is required", model.ErrInvalidParameter)
	}
	host, err := u.Repos.Cluster.Get(ctx, rctx, in.HostCluster)
	if err != nil {
		return nil, err
	}
	f := &model.Federation{
		Name:          in.Name,
		ProjectID:     rctx.ProjectID,
		HostClusterID: host.UUID,
		Properties:    in.Properties,
		Status:        model.StatusCreateComplete,
	}
	if err := u.Repos.Federation.Create(ctx, rctx, f); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "federation created",
		"federation_uuid", f.UUID, "name", f.Name, "host_cluster", host.UUID)
	return &CreateOutput{Federation: f}, nil
}

// GetInput identifies a federation by uuid or name.
type GetInput struct {
	Ident string `json:"ident"`
}

// GetOutput wraps the federation.
type GetOutput struct {
	Federation *model.Federation `json:"federation"`
}

// Get resolves one federation.
func (u *UseCase) Get(ctx context.Context, rctx *model.RequestContext, in *GetInput) (*GetOutput, error) {
	if in == nil || in.Ident == "" {
		return nil, fmt.Errorf("%w: federation ident is required", model.ErrInvalidParameter)
	}
	f, err := u.Repos.Federation.Get(ctx, rctx, in.Ident)
	if err != nil {
		return nil, err
	}
	return &GetOutput{Federation: f}, nil
}

// ListInput carries pagination options.
type ListInput struct {
	Limit   int    `json:"limit,omitempty"`
	Marker  string `json:"marker,omitempty"`
	SortKey string `json:"sort_key,omitempty"`
	SortDir string `json:"sort_dir,omitempty"`
}

// ListOutput carries one page of federations.
type ListOutput struct {
	Federations []*model.Federation `json:"federations"`
}

// List returns the federations visible to the caller.
func (u *UseCase) List(ctx context.Context, rctx *model.RequestContext, in *ListInput) (*ListOutput, error) {
	opts := domain.ListOpts{}
	if in != nil {
		opts = domain.ListOpts{
			Limit:   in.Limit,
			Marker:  in.Marker,
			SortKey: in.SortKey,
			SortDir: domain.SortDir(in.SortDir),
		}
	}
	feds, err := u.Repos.Federation.List(ctx, rctx, opts)
	if err != nil {
		return nil, err
	}
	return &ListOutput{Federations: feds}, nil
}

// UpdateInput patches a federation. AddMembers and RemoveMembers adjust the
// member set; member references must resolve within the caller's scope.
type UpdateInput struct {
	Ident         string            `json:"ident"`
	Name          *string           `json:"name,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	AddMembers    []string          `json:"add_members,omitempty"`
	RemoveMembers []string          `json:"remove_members,omitempty"`
}

// UpdateOutput wraps the updated federation.
type UpdateOutput struct {
	Federation *model.Federation `json:"federation"`
}

// Update applies the patch.
func (u *UseCase) Update(ctx context.Context, rctx *model.RequestContext, in *UpdateInput) (*UpdateOutput, error) {
	if in == nil || in.Ident == "" {
		return nil, fmt.Errorf("%w: federation ident is required", model.ErrInvalidParameter)
	}
	f, err := u.Repos.Federation.Get(ctx, rctx, in.Ident)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Properties != nil {
		updates["properties"] = in.Properties
	}
	if len(in.AddMembers) > 0 || len(in.RemoveMembers) > 0 {
		members, err := u.nextMembers(ctx, rctx, f, in.AddMembers, in.RemoveMembers)
		if err != nil {
			return nil, err
		}
		updates["member_ids"] = members
	}
	if len(updates) == 0 {
		return &UpdateOutput{Federation: f}, nil
	}

	updated, err := u.Repos.Federation.Update(ctx, rctx, f.UUID, updates)
	if err != nil {
		return nil, err
	}
	return &UpdateOutput{Federation: updated}, nil
}

// nextMembers computes the member set after the adds and removes. Adds are
// resolved to cluster UUIDs and deduplicated; removing an absent member is
// an error so callers notice typos.
func (u *UseCase) nextMembers(ctx context.Context, rctx *model.RequestContext, f *model.Federation, add, remove []string) ([]string, error) {
	present := make(map[string]bool, len(f.MemberIDs))
	members := make([]string, 0, len(f.MemberIDs)+len(add))
	for _, id := range f.MemberIDs {
		present[id] = true
		members = append(members, id)
	}
	for _, ident := range add {
		c, err := u.Repos.Cluster.Get(ctx, rctx, ident)
		if err != nil {
			return nil, err
		}
		if c.UUID == f.HostClusterID {
			return nil, fmt.Errorf("%w: host cluster cannot join as a member", model.ErrInvalidParameter)
		}
		if present[c.UUID] {
			continue
		}
		present[c.UUID] = true
		members = append(members, c.UUID)
	}
	for _, ident := range remove {
		c, err := u.Repos.Cluster.Get(ctx, rctx, ident)
		if err != nil {
			return nil, err
		}
		if !present[c.UUID] {
			return nil, fmt.Errorf("%w: cluster %s is not a member", model.ErrInvalidParameter, c.UUID)
		}
		present[c.UUID] = false
		out := members[:0]
		for _, id := range members {
			if id != c.UUID {
				out = append(out, id)
			}
		}
		members = out
	}
	return members, nil
}

// DeleteInput identifies the federation to delete.
type DeleteInput struct {
	Ident string `json:"ident"`
}

// DeleteOutput is empty; delete has no payload.
type DeleteOutput struct{}

// Delete removes the federation. Member clusters are untouched.
func (u *UseCase) Delete(ctx context.Context, rctx *model.RequestContext, in *DeleteInput) (*DeleteOutput, error) {
	if in == nil || in.Ident == "" {
		return nil, fmt.Errorf("%w: federation ident is required", model.ErrInvalidParameter)
	}
	f, err := u.Repos.Federation.Get(ctx, rctx, in.Ident)
	if err != nil {
		return nil, err
	}
	if err := u.Repos.Federation.Destroy(ctx, rctx, f.UUID); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "federation deleted", "federation_uuid", f.UUID)
	return &DeleteOutput{}, nil
}

// Package quota implements CRUD for per-project resource quotas. Reads are
// open to the owning project; writes are admin-only.
package quota

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// Repos holds repositories needed for quota use cases.
type Repos struct {
	Quota domain.QuotaRepository
}

// UseCase implements the quota operations.
type UseCase struct {
	Repos *Repos
}

func (u *UseCase) requireAdmin(rctx *model.RequestContext) error {
	if rctx == nil || !rctx.IsAdmin {
		return fmt.Errorf("%w: quota writes require an admin caller", model.ErrAuthorizationFailure)
	}
	return nil
}

func validResource(resource string) error {
	if resource != model.QuotaResourceCluster {
		return fmt.Errorf("%w: unknown quota resource %q", model.ErrInvalidParameter, resource)
	}
	return nil
}

// CreateInput sets the hard limit for one (project, resource) pair.
type CreateInput struct {
	ProjectID string `json:"project_id"`
	Resource  string `json:"resource"`
	HardLimit int    `json:"hard_limit"`
}

// CreateOutput wraps the persisted quota.
type CreateOutput struct {
	Quota *model.Quota `json:"quota"`
}

// Create persists a new quota row. Admin only.
func (u *UseCase) Create(ctx context.Context, rctx *model.RequestContext, in *CreateInput) (*CreateOutput, error) {
	if err := u.requireAdmin(rctx); err != nil {
		return nil, err
	}
	if in == nil || in.ProjectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", model.ErrInvalidParameter)
	}
	if err := validResource(in.Resource); err != nil {
		return nil, err
	}
	if in.HardLimit < 0 {
		return nil, fmt.Errorf("%w: hard_limit must be >= 0", model.ErrInvalidParameter)
	}
	q := &model.Quota{ProjectID: in.ProjectID, Resource: in.Resource, HardLimit: in.HardLimit}
	if err := u.Repos.Quota.Create(ctx, rctx, q); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "quota created",
		"project_id", q.ProjectID, "resource", q.Resource, "hard_limit", q.HardLimit)
	return &CreateOutput{Quota: q}, nil
}

// GetInput identifies a quota row. ProjectID defaults to the caller's project.
type GetInput struct {
	ProjectID string `json:"project_id,omitempty"`
	Resource  string `json:"resource"`
}

// GetOutput wraps the quota.
type GetOutput struct {
	Quota *model.Quota `json:"quota"`
}

// Get reads one quota. Non-admin callers only see their own project.
func (u *UseCase) Get(ctx context.Context, rctx *model.RequestContext, in *GetInput) (*GetOutput, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: empty request", model.ErrInvalidParameter)
	}
	projectID := in.ProjectID
	if projectID == "" {
		projectID = rctx.ProjectID
	}
	if projectID != rctx.ProjectID && !rctx.IsAdmin {
		return nil, model.ErrAuthorizationFailure
	}
	if err := validResource(in.Resource); err != nil {
		return nil, err
	}
	q, err := u.Repos.Quota.GetByProjectResource(ctx, projectID, in.Resource)
	if err != nil {
		return nil, err
	}
	return &GetOutput{Quota: q}, nil
}

// ListInput carries pagination options. Admin with AllTenants sees every
// project.
type ListInput struct {
	Limit   int    `json:"limit,omitempty"`
	Marker  string `json:"marker,omitempty"`
	SortKey string `json:"sort_key,omitempty"`
	SortDir string `json:"sort_dir,omitempty"`
}

// ListOutput carries one page of quotas.
type ListOutput struct {
	Quotas []*model.Quota `json:"quotas"`
}

// List returns the quotas visible to the caller.
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
	quotas, err := u.Repos.Quota.List(ctx, rctx, opts)
	if err != nil {
		return nil, err
	}
	return &ListOutput{Quotas: quotas}, nil
}

// UpdateInput changes the hard limit of an existing quota row.
type UpdateInput struct {
	ProjectID string `json:"project_id"`
	Resource  string `json:"resource"`
	HardLimit int    `json:"hard_limit"`
}

// UpdateOutput wraps the updated quota.
type UpdateOutput struct {
	Quota *model.Quota `json:"quota"`
}

// Update changes the limit. Admin only.
func (u *UseCase) Update(ctx context.Context, rctx *model.RequestContext, in *UpdateInput) (*UpdateOutput, error) {
	if err := u.requireAdmin(rctx); err != nil {
		return nil, err
	}
	if in == nil || in.ProjectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", model.ErrInvalidParameter)
	}
	if err := validResource(in.Resource); err != nil {
		return nil, err
	}
	if in.HardLimit < 0 {
		return nil, fmt.Errorf("%w: hard_limit must be >= 0", model.ErrInvalidParameter)
	}
	q, err := u.Repos.Quota.Update(ctx, rctx, in.ProjectID, in.Resource, in.HardLimit)
	if err != nil {
		return nil, err
	}
	return &UpdateOutput{Quota: q}, nil
}

// DeleteInput identifies the quota row to remove.
type DeleteInput struct {
	ProjectID string `json:"project_id"`
	Resource  string `json:"resource"`
}

// DeleteOutput is empty; delete has no payload.
type DeleteOutput struct{}

// Delete removes the quota, returning the project to unlimited. Admin only.
func (u *UseCase) Delete(ctx context.Context, rctx *model.RequestContext, in *DeleteInput) (*DeleteOutput, error) {
	if err := u.requireAdmin(rctx); err != nil {
		return nil, err
	}
	if in == nil || in.ProjectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", model.ErrInvalidParameter)
	}
	if err := validResource(in.Resource); err != nil {
		return nil, err
	}
	if err := u.Repos.Quota.Destroy(ctx, rctx, in.ProjectID, in.Resource); err != nil {
		return nil, err
	}
	return &DeleteOutput{}, nil
}

package cluster

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

// ListOutput carries one page of clusters.
type ListOutput struct {
	Clusters []*model.Cluster `json:"clusters"`
}

// List returns the clusters visible to the caller.
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
	clusters, err := u.Repos.Cluster.List(ctx, rctx, opts)
	if err != nil {
		return nil, err
	}
	return &ListOutput{Clusters: clusters}, nil
}

func domainListAll() domain.ListOpts { return domain.ListOpts{} }

// StatsInput scopes the aggregation; empty ProjectID with admin scope
// aggregates across all tenants.
type StatsInput struct {
	ProjectID string `json:"project_id,omitempty"`
}

// StatsOutput carries cluster and worker-node totals.
type StatsOutput struct {
	Clusters int64 `json:"clusters"`
	Nodes    int64 `json:"nodes"`
}

// Stats aggregates cluster and node counts.
func (u *UseCase) Stats(ctx context.Context, rctx *model.RequestContext, in *StatsInput) (*StatsOutput, error) {
	projectID := rctx.ProjectID
	if in != nil && in.ProjectID != "" {
		projectID = in.ProjectID
	}
	if projectID != rctx.ProjectID && !rctx.IsAdmin {
		return nil, model.ErrAuthorizationFailure
	}
	clusters, nodes, err := u.Repos.Cluster.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{Clusters: clusters, Nodes: nodes}, nil
}

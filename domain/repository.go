package domain

import (
	"context"

	"github.com/stackmint/stackmint/domain/model"
)

// SortDir is the direction of a List sort.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ListOpts controls filtering and keyset pagination for List calls. Marker is
// the UUID of the last row of the previous page; SortKey always gets id as a
// tiebreaker so pagination is deterministic.
type ListOpts struct {
	Filters map[string]interface{}
	Limit   int
	Marker  string
	SortKey string
	SortDir SortDir
}

// ClusterRepository stores and retrieves Cluster aggregates. Lookups resolve
// by UUID first, then by name within the caller's tenant scope. Update takes a
// row-level exclusive lock for the read-modify-write and refuses an updates
// map containing "uuid".
type ClusterRepository interface {
	Create(ctx context.Context, rctx *model.RequestContext, c *model.Cluster) error
	Get(ctx context.Context, rctx *model.RequestContext, ident string) (*model.Cluster, error)
	List(ctx context.Context, rctx *model.RequestContext, opts ListOpts) ([]*model.Cluster, error)
	Update(ctx context.Context, rctx *model.RequestContext, uuid string, updates map[string]interface{}) (*model.Cluster, error)
	Destroy(ctx context.Context, rctx *model.RequestContext, uuid string) error
	// CountByTemplate reports how many clusters reference the template.
	CountByTemplate(ctx context.Context, templateUUID string) (int64, error)
	// Stats aggregates cluster and worker-node counts for a project; empty
	// projectID aggregates across all tenants.
	Stats(ctx context.Context, projectID string) (clusters int64, nodes int64, err error)
}

// ClusterTemplateRepository stores and retrieves ClusterTemplate aggregates.
type ClusterTemplateRepository interface {
	Create(ctx context.Context, rctx *model.RequestContext, t *model.ClusterTemplate) error
	Get(ctx context.Context, rctx *model.RequestContext, ident string) (*model.ClusterTemplate, error)
	List(ctx context.Context, rctx *model.RequestContext, opts ListOpts) ([]*model.ClusterTemplate, error)
	Update(ctx context.Context, rctx *model.RequestContext, uuid string, updates map[string]interface{}) (*model.ClusterTemplate, error)
	Destroy(ctx context.Context, rctx *model.RequestContext, uuid string) error
}

// NodeGroupRepository stores and retrieves NodeGroup aggregates scoped to a
// cluster.
type NodeGroupRepository interface {
	Create(ctx context.Context, rctx *model.RequestContext, ng *model.NodeGroup) error
	Get(ctx context.Context, rctx *model.RequestContext, clusterUUID, ident string) (*model.NodeGroup, error)
	ListByCluster(ctx context.Context, rctx *model.RequestContext, clusterUUID string, opts ListOpts) ([]*model.NodeGroup, error)
	Update(ctx context.Context, rctx *model.RequestContext, uuid string, updates map[string]interface{}) (*model.NodeGroup, error)
	Destroy(ctx context.Context, rctx *model.RequestContext, uuid string) error
}

// X509KeyPairRepository backs the db-backed certificate store.
type X509KeyPairRepository interface {
	Create(ctx context.Context, rctx *model.RequestContext, kp *model.X509KeyPair) error
	Get(ctx context.Context, rctx *model.RequestContext, uuid string) (*model.X509KeyPair, error)
	Destroy(ctx context.Context, rctx *model.RequestContext, uuid string) error
}

// QuotaRepository stores and retrieves per-project resource quotas.
type QuotaRepository interface {
	Create(ctx context.Context, rctx *model.RequestContext, q *model.Quota) error
	GetByProjectResource(ctx context.Context, projectID, resource string) (*model.Quota, error)
	List(ctx context.Context, rctx *model.RequestContext, opts ListOpts) ([]*model.Quota, error)
	Update(ctx context.Context, rctx *model.RequestContext, projectID, resource string, hardLimit int) (*model.Quota, error)
	Destroy(ctx context.Context, rctx *model.RequestContext, projectID, resource string) error
}

// FederationRepository stores and retrieves Federation aggregates.
type FederationRepository interface {
	Create(ctx context.Context, rctx *model.RequestContext, f *model.Federation) error
	Get(ctx context.Context, rctx *model.RequestContext, ident string) (*model.Federation, error)
	List(ctx context.Context, rctx *model.RequestContext, opts ListOpts) ([]*model.Federation, error)
	Update(ctx context.Context, rctx *model.RequestContext, uuid string, updates map[string]interface{}) (*model.Federation, error)
	Destroy(ctx context.Context, rctx *model.RequestContext, uuid string) error
}

// ServiceHeartbeatRepository tracks conductor liveness rows.
type ServiceHeartbeatRepository interface {
	// Touch advances last_seen_up and report_count for (host, binary),
	// creating the row on first sight.
	Touch(ctx context.Context, host, binary string) (*model.ServiceHeartbeat, error)
	List(ctx context.Context) ([]*model.ServiceHeartbeat, error)
}

// Repositories groups every repository the use cases need.
type Repositories struct {
	Cluster         ClusterRepository
	ClusterTemplate ClusterTemplateRepository
	NodeGroup       NodeGroupRepository
	X509KeyPair     X509KeyPairRepository
	Quota           QuotaRepository
	Federation      FederationRepository
	Heartbeat       ServiceHeartbeatRepository
}

package inmem

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

type nodeGroupRepo struct{ s *Store }

func (r *nodeGroupRepo) Create(ctx context.Context, rctx *model.RequestContext, ng *model.NodeGroup) error {
	if err := ng.ValidateCounts(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.nodeGroups {
		if other.ClusterID == ng.ClusterID && other.Name == ng.Name {
			return fmt.Errorf("%w: node group %s in cluster %s", model.ErrAlreadyExists, ng.Name, ng.ClusterID)
		}
	}
	if ng.UUID == "" {
		ng.UUID = uuid.NewString()
	}
	ng.ID = r.s.allocID()
	now := time.Now().UTC()
	ng.CreatedAt, ng.UpdatedAt = now, now
	cp := *ng
	r.s.nodeGroups[ng.UUID] = &cp
	return nil
}

func (r *nodeGroupRepo) Get(ctx context.Context, rctx *model.RequestContext, clusterUUID, ident string) (*model.NodeGroup, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, ng := range r.s.nodeGroups {
		if ng.ClusterID != clusterUUID || !r.s.visible(rctx, ng.ProjectID) {
			continue
		}
		if ng.UUID == ident || ng.Name == ident {
			cp := *ng
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: node group %s in cluster %s", model.ErrNotFound, ident, clusterUUID)
}

func (r *nodeGroupRepo) ListByCluster(ctx context.Context, rctx *model.RequestContext, clusterUUID string, opts domain.ListOpts) ([]*model.NodeGroup, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.NodeGroup
	for _, ng := range r.s.nodeGroups {
		if ng.ClusterID != clusterUUID || !r.s.visible(rctx, ng.ProjectID) {
			continue
		}
		cp := *ng
		out = append(out, &cp)
	}
	sortByID(out, func(ng *model.NodeGroup) int64 { return ng.ID }, opts.SortDir)
	return page(out, func(ng *model.NodeGroup) string { return ng.UUID }, opts), nil
}

func (r *nodeGroupRepo) Update(ctx context.Context, rctx *model.RequestContext, ngUUID string, updates map[string]interface{}) (*model.NodeGroup, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := updates["uuid"]; ok {
		return nil, fmt.Errorf("%w: uuid is immutable", model.ErrInvalidParameter)
	}
	ng, ok := r.s.nodeGroups[ngUUID]
	if !ok || !r.s.visible(rctx, ng.ProjectID) {
		return nil, fmt.Errorf("%w: node group %s", model.ErrNotFound, ngUUID)
	}
	for k, v := range updates {
		switch k {
		case "node_count":
			if n, ok := v.(int); ok {
				ng.NodeCount = n
			}
		case "min_node_count":
			if n, ok := v.(int); ok {
				ng.MinNodeCount = n
			}
		case "max_node_count":
			switch n := v.(type) {
			case nil:
				ng.MaxNodeCount = nil
			case int:
				ng.MaxNodeCount = &n
			case *int:
				ng.MaxNodeCount = n
			}
		case "node_addresses":
			if a, ok := v.([]string); ok {
				ng.NodeAddresses = a
			}
		case "status":
			ng.Status = model.Status(fmt.Sprint(v))
		case "status_reason":
			ng.StatusReason = fmt.Sprint(v)
		case "stack_id":
			ng.StackID = fmt.Sprint(v)
		case "labels":
			if m, ok := v.(map[string]string); ok {
				ng.Labels = m
			}
		case "version":
			ng.Version = fmt.Sprint(v)
		case "updated_at":
		default:
			return nil, fmt.Errorf("%w: unknown node group column %q", model.ErrInvalidParameter, k)
		}
	}
	ng.UpdatedAt = time.Now().UTC()
	cp := *ng
	return &cp, nil
}

func (r *nodeGroupRepo) Destroy(ctx context.Context, rctx *model.RequestContext, ngUUID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ng, ok := r.s.nodeGroups[ngUUID]
	if !ok || !r.s.visible(rctx, ng.ProjectID) {
		return fmt.Errorf("%w: node group %s", model.ErrNotFound, ngUUID)
	}
	delete(r.s.nodeGroups, ngUUID)
	return nil
}

var _ domain.NodeGroupRepository = (*nodeGroupRepo)(nil)

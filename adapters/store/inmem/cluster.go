package inmem

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

type clusterRepo struct{ s *Store }

func (r *clusterRepo) Create(ctx context.Context, rctx *model.RequestContext, c *model.Cluster) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.UUID == "" {
		c.UUID = uuid.NewString()
	}
	if _, ok := r.s.clusters[c.UUID]; ok {
		return fmt.Errorf("%w: cluster %s", model.ErrAlreadyExists, c.UUID)
	}
	c.ID = r.s.allocID()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	r.s.clusters[c.UUID] = &cp
	return nil
}

func (r *clusterRepo) Get(ctx context.Context, rctx *model.RequestContext, ident string) (*model.Cluster, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if c, ok := r.s.clusters[ident]; ok && r.s.visible(rctx, c.ProjectID) {
		cp := *c
		return &cp, nil
	}
	var matches []*model.Cluster
	for _, c := range r.s.clusters {
		if c.Name == ident && r.s.visible(rctx, c.ProjectID) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: cluster %s", model.ErrNotFound, ident)
	case 1:
		cp := *matches[0]
		return &cp, nil
	default:
		return nil, fmt.Errorf("%w: multiple clusters named %s", model.ErrConflict, ident)
	}
}

func (r *clusterRepo) List(ctx context.Context, rctx *model.RequestContext, opts domain.ListOpts) ([]*model.Cluster, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Cluster
	for _, c := range r.s.clusters {
		if !r.s.visible(rctx, c.ProjectID) {
			continue
		}
		if !clusterMatches(c, opts.Filters) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sortByID(out, func(c *model.Cluster) int64 { return c.ID }, opts.SortDir)
	return page(out, func(c *model.Cluster) string { return c.UUID }, opts), nil
}

func clusterMatches(c *model.Cluster, filters map[string]interface{}) bool {
	for k, v := range filters {
		switch k {
		case "name":
			if c.Name != v {
				return false
			}
		case "status":
			if string(c.Status) != fmt.Sprint(v) {
				return false
			}
		case "project_id":
			if c.ProjectID != v {
				return false
			}
		case "cluster_template_id":
			if c.ClusterTemplateID != v {
				return false
			}
		case "stack_id":
			if c.StackID != v {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (r *clusterRepo) Update(ctx context.Context, rctx *model.RequestContext, clusterUUID string, updates map[string]interface{}) (*model.Cluster, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := updates["uuid"]; ok {
		return nil, fmt.Errorf("%w: uuid is immutable", model.ErrInvalidParameter)
	}
	c, ok := r.s.clusters[clusterUUID]
	if !ok || !r.s.visible(rctx, c.ProjectID) {
		return nil, fmt.Errorf("%w: cluster %s", model.ErrNotFound, clusterUUID)
	}
	if err := applyClusterUpdates(c, updates); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

func applyClusterUpdates(c *model.Cluster, updates map[string]interface{}) error {
	for k, v := range updates {
		switch k {
		case "status":
			c.Status = model.Status(fmt.Sprint(v))
		case "status_reason":
			c.StatusReason = fmt.Sprint(v)
		case "health_status":
			c.HealthStatus = model.HealthStatus(fmt.Sprint(v))
		case "health_status_reason":
			if m, ok := v.(map[string]string); ok {
				c.HealthStatusReason = m
			}
		case "stack_id":
			c.StackID = fmt.Sprint(v)
		case "api_address":
			c.APIAddress = fmt.Sprint(v)
		case "discovery_url":
			c.DiscoveryURL = fmt.Sprint(v)
		case "ca_cert_ref":
			c.CACertRef = fmt.Sprint(v)
		case "client_cert_ref":
			c.ClientCertRef = fmt.Sprint(v)
		case "etcd_ca_cert_ref":
			c.EtcdCACertRef = fmt.Sprint(v)
		case "front_proxy_ca_cert_ref":
			c.FrontProxyCACertRef = fmt.Sprint(v)
		case "trust_id":
			c.TrustID = fmt.Sprint(v)
		case "trustee_user_id":
			c.TrusteeUserID = fmt.Sprint(v)
		case "trustee_username":
			c.TrusteeUsername = fmt.Sprint(v)
		case "trustee_password":
			c.TrusteePassword = fmt.Sprint(v)
		case "cluster_template_id":
			c.ClusterTemplateID = fmt.Sprint(v)
		case "coe_version":
			c.COEVersion = fmt.Sprint(v)
		case "container_version":
			c.ContainerVersion = fmt.Sprint(v)
		case "labels":
			if m, ok := v.(map[string]string); ok {
				c.Labels = m
			}
		case "updated_at":
			// set by the repo
		default:
			return fmt.Errorf("%w: unknown cluster column %q", model.ErrInvalidParameter, k)
		}
	}
	return nil
}

func (r *clusterRepo) Destroy(ctx context.Context, rctx *model.RequestContext, clusterUUID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clusters[clusterUUID]
	if !ok || !r.s.visible(rctx, c.ProjectID) {
		return fmt.Errorf("%w: cluster %s", model.ErrNotFound, clusterUUID)
	}
	delete(r.s.clusters, clusterUUID)
	for u, ng := range r.s.nodeGroups {
		if ng.ClusterID == clusterUUID {
			delete(r.s.nodeGroups, u)
		}
	}
	return nil
}

func (r *clusterRepo) CountByTemplate(ctx context.Context, templateUUID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, c := range r.s.clusters {
		if c.ClusterTemplateID == templateUUID {
			n++
		}
	}
	return n, nil
}

func (r *clusterRepo) Stats(ctx context.Context, projectID string) (int64, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var clusters, nodes int64
	for _, c := range r.s.clusters {
		if projectID != "" && c.ProjectID != projectID {
			continue
		}
		clusters++
		for _, ng := range r.s.nodeGroups {
			if ng.ClusterID == c.UUID && ng.Role != model.NodeGroupRoleMaster {
				nodes += int64(ng.NodeCount)
			}
		}
	}
	return clusters, nodes, nil
}

var _ domain.ClusterRepository = (*clusterRepo)(nil)

package inmem

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

type templateRepo struct{ s *Store }

func (r *templateRepo) visible(rctx *model.RequestContext, t *model.ClusterTemplate) bool {
	if r.s.visible(rctx, t.ProjectID) {
		return true
	}
	return t.Public && !t.Hidden
}

func (r *templateRepo) Create(ctx context.Context, rctx *model.RequestContext, t *model.ClusterTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.UUID == "" {
		t.UUID = uuid.NewString()
	}
	if _, ok := r.s.templates[t.UUID]; ok {
		return fmt.Errorf("%w: cluster template %s", model.ErrAlreadyExists, t.UUID)
	}
	t.ID = r.s.allocID()
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	r.s.templates[t.UUID] = &cp
	return nil
}

func (r *templateRepo) Get(ctx context.Context, rctx *model.RequestContext, ident string) (*model.ClusterTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if t, ok := r.s.templates[ident]; ok && r.visible(rctx, t) {
		cp := *t
		return &cp, nil
	}
	var matches []*model.ClusterTemplate
	for _, t := range r.s.templates {
		if t.Name == ident && r.visible(rctx, t) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: cluster template %s", model.ErrNotFound, ident)
	case 1:
		cp := *matches[0]
		return &cp, nil
	default:
		return nil, fmt.Errorf("%w: multiple cluster templates named %s", model.ErrConflict, ident)
	}
}

func (r *templateRepo) List(ctx context.Context, rctx *model.RequestContext, opts domain.ListOpts) ([]*model.ClusterTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.ClusterTemplate
	for _, t := range r.s.templates {
		if !r.visible(rctx, t) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sortByID(out, func(t *model.ClusterTemplate) int64 { return t.ID }, opts.SortDir)
	return page(out, func(t *model.ClusterTemplate) string { return t.UUID }, opts), nil
}

func (r *templateRepo) Update(ctx context.Context, rctx *model.RequestContext, templateUUID string, updates map[string]interface{}) (*model.ClusterTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := updates["uuid"]; ok {
		return nil, fmt.Errorf("%w: uuid is immutable", model.ErrInvalidParameter)
	}
	t, ok := r.s.templates[templateUUID]
	if !ok || !r.s.visible(rctx, t.ProjectID) {
		return nil, fmt.Errorf("%w: cluster template %s", model.ErrNotFound, templateUUID)
	}
	for k, v := range updates {
		switch k {
		case "name":
			t.Name = fmt.Sprint(v)
		case "public":
			t.Public = v == true
		case "hidden":
			t.Hidden = v == true
		case "tags":
			t.Tags = fmt.Sprint(v)
		case "image_id":
			t.ImageID = fmt.Sprint(v)
		case "flavor":
			t.Flavor = fmt.Sprint(v)
		case "master_flavor":
			t.MasterFlavor = fmt.Sprint(v)
		case "keypair":
			t.Keypair = fmt.Sprint(v)
		case "dns_nameserver":
			t.DNSNameserver = fmt.Sprint(v)
		case "external_network_id":
			t.ExternalNetworkID = fmt.Sprint(v)
		case "fixed_network":
			t.FixedNetwork = fmt.Sprint(v)
		case "fixed_subnet":
			t.FixedSubnet = fmt.Sprint(v)
		case "network_driver":
			t.NetworkDriver = fmt.Sprint(v)
		case "volume_driver":
			t.VolumeDriver = fmt.Sprint(v)
		case "docker_volume_size":
			if n, ok := v.(int); ok {
				t.DockerVolumeSize = n
			}
		case "docker_storage_driver":
			t.DockerStorageDriver = fmt.Sprint(v)
		case "http_proxy":
			t.HTTPProxy = fmt.Sprint(v)
		case "https_proxy":
			t.HTTPSProxy = fmt.Sprint(v)
		case "no_proxy":
			t.NoProxy = fmt.Sprint(v)
		case "insecure_registry":
			t.InsecureRegistry = fmt.Sprint(v)
		case "registry_enabled":
			t.RegistryEnabled = v == true
		case "tls_disabled":
			t.TLSDisabled = v == true
		case "master_lb_enabled":
			t.MasterLBEnabled = v == true
		case "floating_ip_enabled":
			t.FloatingIPEnabled = v == true
		case "labels":
			if m, ok := v.(map[string]string); ok {
				t.Labels = m
			}
		case "updated_at":
		default:
			return nil, fmt.Errorf("%w: unknown cluster template column %q", model.ErrInvalidParameter, k)
		}
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (r *templateRepo) Destroy(ctx context.Context, rctx *model.RequestContext, templateUUID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.templates[templateUUID]
	if !ok || !r.s.visible(rctx, t.ProjectID) {
		return fmt.Errorf("%w: cluster template %s", model.ErrNotFound, templateUUID)
	}
	delete(r.s.templates, templateUUID)
	return nil
}

var _ domain.ClusterTemplateRepository = (*templateRepo)(nil)

package inmem

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

type keyPairRepo struct{ s *Store }

func (r *keyPairRepo) Create(ctx context.Context, rctx *model.RequestContext, kp *model.X509KeyPair) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if kp.UUID == "" {
		kp.UUID = uuid.NewString()
	}
	kp.ID = r.s.allocID()
	now := time.Now().UTC()
	kp.CreatedAt, kp.UpdatedAt = now, now
	cp := *kp
	r.s.keyPairs[kp.UUID] = &cp
	return nil
}

func (r *keyPairRepo) Get(ctx context.Context, rctx *model.RequestContext, kpUUID string) (*model.X509KeyPair, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	kp, ok := r.s.keyPairs[kpUUID]
	if !ok || !r.s.visible(rctx, kp.ProjectID) {
		return nil, fmt.Errorf("%w: x509keypair %s", model.ErrNotFound, kpUUID)
	}
	cp := *kp
	return &cp, nil
}

func (r *keyPairRepo) Destroy(ctx context.Context, rctx *model.RequestContext, kpUUID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kp, ok := r.s.keyPairs[kpUUID]
	if !ok || !r.s.visible(rctx, kp.ProjectID) {
		return fmt.Errorf("%w: x509keypair %s", model.ErrNotFound, kpUUID)
	}
	delete(r.s.keyPairs, kpUUID)
	return nil
}

var _ domain.X509KeyPairRepository = (*keyPairRepo)(nil)

type quotaRepo struct{ s *Store }

func quotaKey(projectID, resource string) string { return projectID + "/" + resource }

func (r *quotaRepo) Create(ctx context.Context, rctx *model.RequestContext, q *model.Quota) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := quotaKey(q.ProjectID, q.Resource)
	if _, ok := r.s.quotas[key]; ok {
		return fmt.Errorf("%w: quota %s", model.ErrAlreadyExists, key)
	}
	q.ID = r.s.allocID()
	now := time.Now().UTC()
	q.CreatedAt, q.UpdatedAt = now, now
	cp := *q
	r.s.quotas[key] = &cp
	return nil
}

func (r *quotaRepo) GetByProjectResource(ctx context.Context, projectID, resource string) (*model.Quota, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q, ok := r.s.quotas[quotaKey(projectID, resource)]
	if !ok {
		return nil, fmt.Errorf("%w: quota %s/%s", model.ErrNotFound, projectID, resource)
	}
	cp := *q
	return &cp, nil
}

func (r *quotaRepo) List(ctx context.Context, rctx *model.RequestContext, opts domain.ListOpts) ([]*model.Quota, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Quota
	for _, q := range r.s.quotas {
		if rctx != nil && !(rctx.IsAdmin && rctx.AllTenants) && q.ProjectID != rctx.ProjectID {
			continue
		}
		cp := *q
		out = append(out, &cp)
	}
	sortByID(out, func(q *model.Quota) int64 { return q.ID }, opts.SortDir)
	return out, nil
}

func (r *quotaRepo) Update(ctx context.Context, rctx *model.RequestContext, projectID, resource string, hardLimit int) (*model.Quota, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.quotas[quotaKey(projectID, resource)]
	if !ok {
		return nil, fmt.Errorf("%w: quota %s/%s", model.ErrNotFound, projectID, resource)
	}
	q.HardLimit = hardLimit
	q.UpdatedAt = time.Now().UTC()
	cp := *q
	return &cp, nil
}

func (r *quotaRepo) Destroy(ctx context.Context, rctx *model.RequestContext, projectID, resource string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := quotaKey(projectID, resource)
	if _, ok := r.s.quotas[key]; !ok {
		return fmt.Errorf("%w: quota %s", model.ErrNotFound, key)
	}
	delete(r.s.quotas, key)
	return nil
}

var _ domain.QuotaRepository = (*quotaRepo)(nil)

type federationRepo struct{ s *Store }

func (r *federationRepo) Create(ctx context.Context, rctx *model.RequestContext, f *model.Federation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if f.UUID == "" {
		f.UUID = uuid.NewString()
	}
	f.ID = r.s.allocID()
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now
	cp := *f
	r.s.feds[f.UUID] = &cp
	return nil
}

func (r *federationRepo) Get(ctx context.Context, rctx *model.RequestContext, ident string) (*model.Federation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, f := range r.s.feds {
		if (f.UUID == ident || f.Name == ident) && r.s.visible(rctx, f.ProjectID) {
			cp := *f
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: federation %s", model.ErrNotFound, ident)
}

func (r *federationRepo) List(ctx context.Context, rctx *model.RequestContext, opts domain.ListOpts) ([]*model.Federation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Federation
	for _, f := range r.s.feds {
		if !r.s.visible(rctx, f.ProjectID) {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sortByID(out, func(f *model.Federation) int64 { return f.ID }, opts.SortDir)
	return page(out, func(f *model.Federation) string { return f.UUID }, opts), nil
}

func (r *federationRepo) Update(ctx context.Context, rctx *model.RequestContext, fedUUID string, updates map[string]interface{}) (*model.Federation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := updates["uuid"]; ok {
		return nil, fmt.Errorf("%w: uuid is immutable", model.ErrInvalidParameter)
	}
	f, ok := r.s.feds[fedUUID]
	if !ok || !r.s.visible(rctx, f.ProjectID) {
		return nil, fmt.Errorf("%w: federation %s", model.ErrNotFound, fedUUID)
	}
	for k, v := range updates {
		switch k {
		case "name":
			f.Name = fmt.Sprint(v)
		case "member_ids":
			if a, ok := v.([]string); ok {
				f.MemberIDs = a
			}
		case "status":
			f.Status = model.Status(fmt.Sprint(v))
		case "status_reason":
			f.StatusReason = fmt.Sprint(v)
		case "properties":
			if m, ok := v.(map[string]string); ok {
				f.Properties = m
			}
		case "updated_at":
		default:
			return nil, fmt.Errorf("%w: unknown federation column %q", model.ErrInvalidParameter, k)
		}
	}
	f.UpdatedAt = time.Now().UTC()
	cp := *f
	return &cp, nil
}

func (r *federationRepo) Destroy(ctx context.Context, rctx *model.RequestContext, fedUUID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.feds[fedUUID]
	if !ok || !r.s.visible(rctx, f.ProjectID) {
		return fmt.Errorf("%w: federation %s", model.ErrNotFound, fedUUID)
	}
	delete(r.s.feds, fedUUID)
	return nil
}

var _ domain.FederationRepository = (*federationRepo)(nil)

type heartbeatRepo struct{ s *Store }

func (r *heartbeatRepo) Touch(ctx context.Context, host, binary string) (*model.ServiceHeartbeat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := host + "/" + binary
	now := time.Now().UTC()
	hb, ok := r.s.heartbeats[key]
	if !ok {
		hb = &model.ServiceHeartbeat{
			ID: r.s.allocID(), Host: host, Binary: binary,
			LastSeenUp: now, ReportCount: 1, CreatedAt: now, UpdatedAt: now,
		}
		r.s.heartbeats[key] = hb
	} else {
		hb.LastSeenUp = now
		hb.ReportCount++
		hb.UpdatedAt = now
	}
	cp := *hb
	return &cp, nil
}

func (r *heartbeatRepo) List(ctx context.Context) ([]*model.ServiceHeartbeat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.ServiceHeartbeat
	for _, hb := range r.s.heartbeats {
		cp := *hb
		out = append(out, &cp)
	}
	sortByID(out, func(hb *model.ServiceHeartbeat) int64 { return hb.ID }, domain.SortAsc)
	return out, nil
}

var _ domain.ServiceHeartbeatRepository = (*heartbeatRepo)(nil)

package rdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

// ClusterRepository is the gorm-backed implementation of
// domain.ClusterRepository.
type ClusterRepository struct {
	db              *gorm.DB
	trusteeDomainID string
}

func NewClusterRepository(db *gorm.DB, trusteeDomainID string) *ClusterRepository {
	return &ClusterRepository{db: db, trusteeDomainID: trusteeDomainID}
}

func clusterToRecord(c *model.Cluster) *ClusterRecord {
	return &ClusterRecord{
		ID:                  c.ID,
		UUID:                c.UUID,
		ProjectID:           c.ProjectID,
		UserID:              c.UserID,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
		Name:                c.Name,
		ClusterTemplateID:   c.ClusterTemplateID,
		Keypair:             c.Keypair,
		Flavor:              c.Flavor,
		MasterFlavor:        c.MasterFlavor,
		DockerVolumeSize:    c.DockerVolumeSize,
		Labels:              encodeJSON(c.Labels),
		StackID:             c.StackID,
		Status:              string(c.Status),
		StatusReason:        c.StatusReason,
		HealthStatus:        string(c.HealthStatus),
		HealthStatusReason:  encodeJSON(c.HealthStatusReason),
		CreateTimeout:       c.CreateTimeout,
		APIAddress:          c.APIAddress,
		DiscoveryURL:        c.DiscoveryURL,
		CACertRef:           c.CACertRef,
		ClientCertRef:       c.ClientCertRef,
		EtcdCACertRef:       c.EtcdCACertRef,
		FrontProxyCACertRef: c.FrontProxyCACertRef,
		TrustID:             c.TrustID,
		TrusteeUserID:       c.TrusteeUserID,
		TrusteeUsername:     c.TrusteeUsername,
		TrusteePassword:     c.TrusteePassword,
		COEVersion:          c.COEVersion,
		ContainerVersion:    c.ContainerVersion,
		FixedNetwork:        c.FixedNetwork,
		FixedSubnet:         c.FixedSubnet,
		FloatingIPEnabled:   c.FloatingIPEnabled,
		MasterLBEnabled:     c.MasterLBEnabled,
	}
}

func clusterToModel(r *ClusterRecord) *model.Cluster {
	return &model.Cluster{
		ID:                  r.ID,
		UUID:                r.UUID,
		ProjectID:           r.ProjectID,
		UserID:              r.UserID,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		Name:                r.Name,
		ClusterTemplateID:   r.ClusterTemplateID,
		Keypair:             r.Keypair,
		Flavor:              r.Flavor,
		MasterFlavor:        r.MasterFlavor,
		DockerVolumeSize:    r.DockerVolumeSize,
		Labels:              decodeMap(r.Labels),
		StackID:             r.StackID,
		Status:              model.Status(r.Status),
		StatusReason:        r.StatusReason,
		HealthStatus:        model.HealthStatus(r.HealthStatus),
		HealthStatusReason:  decodeMap(r.HealthStatusReason),
		CreateTimeout:       r.CreateTimeout,
		APIAddress:          r.APIAddress,
		DiscoveryURL:        r.DiscoveryURL,
		CACertRef:           r.CACertRef,
		ClientCertRef:       r.ClientCertRef,
		EtcdCACertRef:       r.EtcdCACertRef,
		FrontProxyCACertRef: r.FrontProxyCACertRef,
		TrustID:             r.TrustID,
		TrusteeUserID:       r.TrusteeUserID,
		TrusteeUsername:     r.TrusteeUsername,
		TrusteePassword:     r.TrusteePassword,
		COEVersion:          r.COEVersion,
		ContainerVersion:    r.ContainerVersion,
		FixedNetwork:        r.FixedNetwork,
		FixedSubnet:         r.FixedSubnet,
		FloatingIPEnabled:   r.FloatingIPEnabled,
		MasterLBEnabled:     r.MasterLBEnabled,
	}
}

var clusterSortKeys = map[string]bool{
	"created_at": true, "updated_at": true, "name": true, "status": true, "uuid": true,
}

var clusterFilterKeys = map[string]bool{
	"name": true, "status": true, "project_id": true, "cluster_template_id": true, "stack_id": true,
}

func (r *ClusterRepository) Create(ctx context.Context, rctx *model.RequestContext, c *model.Cluster) error {
	rec := clusterToRecord(c)
	if rec.UUID == "" {
		rec.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: cluster %s", model.ErrAlreadyExists, rec.UUID)
		}
		return err
	}
	*c = *clusterToModel(rec)
	return nil
}

// Get resolves ident as a UUID first, then as a name within the caller's
// tenant scope. A name shared by several clusters is ErrConflict; the caller
// must disambiguate with the UUID.
func (r *ClusterRepository) Get(ctx context.Context, rctx *model.RequestContext, ident string) (*model.Cluster, error) {
	q := tenantScope(r.db.WithContext(ctx), rctx, r.trusteeDomainID)
	var rec ClusterRecord
	err := q.First(&rec, "uuid = ?", ident).Error
	if err == nil {
		return clusterToModel(&rec), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	var recs []ClusterRecord
	q = tenantScope(r.db.WithContext(ctx), rctx, r.trusteeDomainID)
	if err := q.Limit(2).Find(&recs, "name = ?", ident).Error; err != nil {
		return nil, err
	}
	switch len(recs) {
	case 0:
		return nil, fmt.Errorf("%w: cluster %s", model.ErrNotFound, ident)
	case 1:
		return clusterToModel(&recs[0]), nil
	default:
		return nil, fmt.Errorf("%w: multiple clusters named %s", model.ErrConflict, ident)
	}
}

func (r *ClusterRepository) List(ctx context.Context, rctx *model.RequestContext, opts domain.ListOpts) ([]*model.Cluster, error) {
	q := tenantScope(r.db.WithContext(ctx).Model(&ClusterRecord{}), rctx, r.trusteeDomainID)
	q, err := applyFilters(q, opts.Filters, clusterFilterKeys)
	if err != nil {
		return nil, err
	}
	var mk *keyset
	if opts.Marker != "" {
		var row ClusterRecord
		if err := r.db.WithContext(ctx).First(&row, "uuid = ?", opts.Marker).Error; err != nil {
			return nil, fmt.Errorf("%w: marker %s", model.ErrNotFound, opts.Marker)
		}
		mk = &keyset{sortVal: sortValue(&row, opts.SortKey), id: row.ID}
	}
	q, err = applyListOpts(q, opts, clusterSortKeys, mk)
	if err != nil {
		return nil, err
	}
	var recs []ClusterRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Cluster, 0, len(recs))
	for i := range recs {
		out = append(out, clusterToModel(&recs[i]))
	}
	return out, nil
}

func sortValue(r *ClusterRecord, key string) interface{} {
	switch key {
	case "updated_at":
		return r.UpdatedAt
	case "name":
		return r.Name
	case "status":
		return r.Status
	case "uuid":
		return r.UUID
	default:
		return r.CreatedAt
	}
}

// Update applies the updates map under a row lock inside one transaction.
// Status transitions from the reconciler and from users go through here, so
// they serialize on the same row.
func (r *ClusterRepository) Update(ctx context.Context, rctx *model.RequestContext, clusterUUID string, updates map[string]interface{}) (*model.Cluster, error) {
	if err := rejectImmutable(updates, "uuid", "id", "project_id", "user_id"); err != nil {
		return nil, err
	}
	var out *model.Cluster
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tenantScope(lockForUpdate(tx), rctx, r.trusteeDomainID)
		var rec ClusterRecord
		if err := q.First(&rec, "uuid = ?", clusterUUID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: cluster %s", model.ErrNotFound, clusterUUID)
			}
			return err
		}
		cols := normalizeUpdates(updates)
		cols["updated_at"] = time.Now().UTC()
		if err := tx.Model(&rec).Updates(cols).Error; err != nil {
			return err
		}
		out = clusterToModel(&rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ClusterRepository) Destroy(ctx context.Context, rctx *model.RequestContext, clusterUUID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tenantScope(tx, rctx, r.trusteeDomainID)
		res := q.Delete(&ClusterRecord{}, "uuid = ?", clusterUUID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: cluster %s", model.ErrNotFound, clusterUUID)
		}
		// Node groups are lifecycle-bound to the cluster.
		return tx.Delete(&NodeGroupRecord{}, "cluster_id = ?", clusterUUID).Error
	})
}

func (r *ClusterRepository) CountByTemplate(ctx context.Context, templateUUID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&ClusterRecord{}).
		Where("cluster_template_id = ?", templateUUID).Count(&n).Error
	return n, err
}

// Stats aggregates cluster count and worker node count for a project. An
// empty projectID aggregates across all tenants.
func (r *ClusterRepository) Stats(ctx context.Context, projectID string) (int64, int64, error) {
	q := r.db.WithContext(ctx).Model(&ClusterRecord{})
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	var clusters int64
	if err := q.Count(&clusters).Error; err != nil {
		return 0, 0, err
	}
	type row struct{ Total int64 }
	var nodes row
	nq := r.db.WithContext(ctx).Model(&NodeGroupRecord{}).
		Select("COALESCE(SUM(node_groups.node_count), 0) AS total").
		Joins("JOIN clusters ON clusters.uuid = node_groups.cluster_id").
		Where("node_groups.role <> ?", string(model.NodeGroupRoleMaster))
	if projectID != "" {
		nq = nq.Where("clusters.project_id = ?", projectID)
	}
	if err := nq.Scan(&nodes).Error; err != nil {
		return 0, 0, err
	}
	return clusters, nodes.Total, nil
}

var _ domain.ClusterRepository = (*ClusterRepository)(nil)

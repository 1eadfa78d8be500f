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

// NodeGroupRepository is the gorm-backed implementation of
// domain.NodeGroupRepository.
type NodeGroupRepository struct {
	db              *gorm.DB
	trusteeDomainID string
}

func NewNodeGroupRepository(db *gorm.DB, trusteeDomainID string) *NodeGroupRepository {
	return &NodeGroupRepository{db: db, trusteeDomainID: trusteeDomainID}
}

func nodeGroupToRecord(ng *model.NodeGroup) *NodeGroupRecord {
	return &NodeGroupRecord{
		ID:               ng.ID,
		UUID:             ng.UUID,
		ProjectID:        ng.ProjectID,
		CreatedAt:        ng.CreatedAt,
		UpdatedAt:        ng.UpdatedAt,
		Name:             ng.Name,
		ClusterID:        ng.ClusterID,
		Role:             string(ng.Role),
		Flavor:           ng.Flavor,
		ImageID:          ng.ImageID,
		DockerVolumeSize: ng.DockerVolumeSize,
		Labels:           encodeJSON(ng.Labels),
		NodeAddresses:    encodeJSON(ng.NodeAddresses),
		NodeCount:        ng.NodeCount,
		MinNodeCount:     ng.MinNodeCount,
		MaxNodeCount:     ng.MaxNodeCount,
		IsDefault:        ng.IsDefault,
		StackID:          ng.StackID,
		Status:           string(ng.Status),
		StatusReason:     ng.StatusReason,
		Version:          ng.Version,
	}
}

func nodeGroupToModel(r *NodeGroupRecord) *model.NodeGroup {
	return &model.NodeGroup{
		ID:               r.ID,
		UUID:             r.UUID,
		ProjectID:        r.ProjectID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		Name:             r.Name,
		ClusterID:        r.ClusterID,
		Role:             model.NodeGroupRole(r.Role),
		Flavor:           r.Flavor,
		ImageID:          r.ImageID,
		DockerVolumeSize: r.DockerVolumeSize,
		Labels:           decodeMap(r.Labels),
		NodeAddresses:    decodeStrings(r.NodeAddresses),
		NodeCount:        r.NodeCount,
		MinNodeCount:     r.MinNodeCount,
		MaxNodeCount:     r.MaxNodeCount,
		IsDefault:        r.IsDefault,
		StackID:          r.StackID,
		Status:           model.Status(r.Status),
		StatusReason:     r.StatusReason,
		Version:          r.Version,
	}
}

var nodeGroupSortKeys = map[string]bool{
	"created_at": true, "updated_at": true, "name": true, "role": true, "uuid": true,
}

func (r *NodeGroupRepository) Create(ctx context.Context, rctx *model.RequestContext, ng *model.NodeGroup) error {
	if err := ng.ValidateCounts(); err != nil {
		return err
	}
	rec := nodeGroupToRecord(ng)
	if rec.UUID == "" {
		rec.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: node group %s in cluster %s", model.ErrAlreadyExists, rec.Name, rec.ClusterID)
		}
		return err
	}
	*ng = *nodeGroupToModel(rec)
	return nil
}

func (r *NodeGroupRepository) Get(ctx context.Context, rctx *model.RequestContext, clusterUUID, ident string) (*model.NodeGroup, error) {
	q := tenantScope(r.db.WithContext(ctx), rctx, r.trusteeDomainID).Where("cluster_id = ?", clusterUUID)
	var rec NodeGroupRecord
	err := q.Where("uuid = ? OR name = ?", ident, ident).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: node group %s in cluster %s", model.ErrNotFound, ident, clusterUUID)
		}
		return nil, err
	}
	return nodeGroupToModel(&rec), nil
}

func (r *NodeGroupRepository) ListByCluster(ctx context.Context, rctx *model.RequestContext, clusterUUID string, opts domain.ListOpts) ([]*model.NodeGroup, error) {
	q := tenantScope(r.db.WithContext(ctx).Model(&NodeGroupRecord{}), rctx, r.trusteeDomainID).
		Where("cluster_id = ?", clusterUUID)
	var mk *keyset
	if opts.Marker != "" {
		var row NodeGroupRecord
		if err := r.db.WithContext(ctx).First(&row, "uuid = ?", opts.Marker).Error; err != nil {
			return nil, fmt.Errorf("%w: marker %s", model.ErrNotFound, opts.Marker)
		}
		mk = &keyset{sortVal: nodeGroupSortValue(&row, opts.SortKey), id: row.ID}
	}
	q, err := applyListOpts(q, opts, nodeGroupSortKeys, mk)
	if err != nil {
		return nil, err
	}
	var recs []NodeGroupRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.NodeGroup, 0, len(recs))
	for i := range recs {
		out = append(out, nodeGroupToModel(&recs[i]))
	}
	return out, nil
}

func nodeGroupSortValue(r *NodeGroupRecord, key string) interface{} {
	switch key {
	case "updated_at":
		return r.UpdatedAt
	case "name":
		return r.Name
	case "role":
		return r.Role
	case "uuid":
		return r.UUID
	default:
		return r.CreatedAt
	}
}

func (r *NodeGroupRepository) Update(ctx context.Context, rctx *model.RequestContext, ngUUID string, updates map[string]interface{}) (*model.NodeGroup, error) {
	if err := rejectImmutable(updates, "uuid", "id", "project_id", "cluster_id"); err != nil {
		return nil, err
	}
	var out *model.NodeGroup
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tenantScope(lockForUpdate(tx), rctx, r.trusteeDomainID)
		var rec NodeGroupRecord
		if err := q.First(&rec, "uuid = ?", ngUUID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: node group %s", model.ErrNotFound, ngUUID)
			}
			return err
		}
		cols := normalizeUpdates(updates)
		cols["updated_at"] = time.Now().UTC()
		if err := tx.Model(&rec).Updates(cols).Error; err != nil {
			return err
		}
		out = nodeGroupToModel(&rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NodeGroupRepository) Destroy(ctx context.Context, rctx *model.RequestContext, ngUUID string) error {
	q := tenantScope(r.db.WithContext(ctx), rctx, r.trusteeDomainID)
	res := q.Delete(&NodeGroupRecord{}, "uuid = ?", ngUUID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: node group %s", model.ErrNotFound, ngUUID)
	}
	return nil
}

var _ domain.NodeGroupRepository = (*NodeGroupRepository)(nil)

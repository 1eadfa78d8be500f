package rdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

// QuotaRepository is the gorm-backed implementation of domain.QuotaRepository.
type QuotaRepository struct {
	db *gorm.DB
}

func NewQuotaRepository(db *gorm.DB) *QuotaRepository { return &QuotaRepository{db: db} }

func quotaToModel(r *QuotaRecord) *model.Quota {
	return &model.Quota{
		ID:        r.ID,
		ProjectID: r.ProjectID,
		Resource:  r.Resource,
		HardLimit: r.HardLimit,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

var quotaSortKeys = map[string]bool{"created_at": true, "updated_at": true, "project_id": true, "resource": true}
var quotaFilterKeys = map[string]bool{"project_id": true, "resource": true}

func (r *QuotaRepository) Create(ctx context.Context, rctx *model.RequestContext, q *model.Quota) error {
	rec := &QuotaRecord{ProjectID: q.ProjectID, Resource: q.Resource, HardLimit: q.HardLimit}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: quota %s/%s", model.ErrAlreadyExists, q.ProjectID, q.Resource)
		}
		return err
	}
	*q = *quotaToModel(rec)
	return nil
}

func (r *QuotaRepository) GetByProjectResource(ctx context.Context, projectID, resource string) (*model.Quota, error) {
	var rec QuotaRecord
	err := r.db.WithContext(ctx).First(&rec, "project_id = ? AND resource = ?", projectID, resource).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: quota %s/%s", model.ErrNotFound, projectID, resource)
		}
		return nil, err
	}
	return quotaToModel(&rec), nil
}

func (r *QuotaRepository) List(ctx context.Context, rctx *model.RequestContext, opts domain.ListOpts) ([]*model.Quota, error) {
	q := r.db.WithContext(ctx).Model(&QuotaRecord{})
	if rctx != nil && !(rctx.IsAdmin && rctx.AllTenants) {
		q = q.Where("project_id = ?", rctx.ProjectID)
	}
	q, err := applyFilters(q, opts.Filters, quotaFilterKeys)
	if err != nil {
		return nil, err
	}
	q, err = applyListOpts(q, opts, quotaSortKeys, nil)
	if err != nil {
		return nil, err
	}
	var recs []QuotaRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Quota, 0, len(recs))
	for i := range recs {
		out = append(out, quotaToModel(&recs[i]))
	}
	return out, nil
}

func (r *QuotaRepository) Update(ctx context.Context, rctx *model.RequestContext, projectID, resource string, hardLimit int) (*model.Quota, error) {
	var out *model.Quota
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec QuotaRecord
		if err := lockForUpdate(tx).First(&rec, "project_id = ? AND resource = ?", projectID, resource).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: quota %s/%s", model.ErrNotFound, projectID, resource)
			}
			return err
		}
		if err := tx.Model(&rec).Updates(map[string]interface{}{
			"hard_limit": hardLimit,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		out = quotaToModel(&rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *QuotaRepository) Destroy(ctx context.Context, rctx *model.RequestContext, projectID, resource string) error {
	res := r.db.WithContext(ctx).Delete(&QuotaRecord{}, "project_id = ? AND resource = ?", projectID, resource)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: quota %s/%s", model.ErrNotFound, projectID, resource)
	}
	return nil
}

var _ domain.QuotaRepository = (*QuotaRepository)(nil)

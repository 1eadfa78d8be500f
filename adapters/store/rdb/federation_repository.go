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

// FederationRepository is the gorm-backed implementation of
// domain.FederationRepository.
type FederationRepository struct {
	db              *gorm.DB
	trusteeDomainID string
}

func NewFederationRepository(db *gorm.DB, trusteeDomainID string) *FederationRepository {
	return &FederationRepository{db: db, trusteeDomainID: trusteeDomainID}
}

func federationToRecord(f *model.Federation) *FederationRecord {
	return &FederationRecord{
		ID:            f.ID,
		UUID:          f.UUID,
		ProjectID:     f.ProjectID,
		Name:          f.Name,
		HostClusterID: f.HostClusterID,
		MemberIDs:     encodeJSON(f.MemberIDs),
		Status:        string(f.Status),
		StatusReason:  f.StatusReason,
		Properties:    encodeJSON(f.Properties),
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

func federationToModel(r *FederationRecord) *model.Federation {
	return &model.Federation{
		ID:            r.ID,
		UUID:          r.UUID,
		ProjectID:     r.ProjectID,
		Name:          r.Name,
		HostClusterID: r.HostClusterID,
		MemberIDs:     decodeStrings(r.MemberIDs),
		Status:        model.Status(r.Status),
		StatusReason:  r.StatusReason,
		Properties:    decodeMap(r.Properties),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

var federationSortKeys = map[string]bool{"created_at": true, "updated_at": true, "name": true, "uuid": true}
var federationFilterKeys = map[string]bool{"name": true, "project_id": true, "hostcluster_id": true}

func (r *FederationRepository) Create(ctx context.Context, rctx *model.RequestContext, f *model.Federation) error {
	rec := federationToRecord(f)
	if rec.UUID == "" {
		rec.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return err
	}
	*f = *federationToModel(rec)
	return nil
}

func (r *FederationRepository) Get(ctx context.Context, rctx *model.RequestContext, ident string) (*model.Federation, error) {
	q := tenantScope(r.db.WithContext(ctx), rctx, r.trusteeDomainID)
	var rec FederationRecord
	if err := q.Where("uuid = ? OR name = ?", ident, ident).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: federation %s", model.ErrNotFound, ident)
		}
		return nil, err
	}
	return federationToModel(&rec), nil
}

func (r *FederationRepository) List(ctx context.Context, rctx *model.RequestContext, opts domain.ListOpts) ([]*model.Federation, error) {
	q := tenantScope(r.db.WithContext(ctx).Model(&FederationRecord{}), rctx, r.trusteeDomainID)
	q, err := applyFilters(q, opts.Filters, federationFilterKeys)
	if err != nil {
		return nil, err
	}
	q, err = applyListOpts(q, opts, federationSortKeys, nil)
	if err != nil {
		return nil, err
	}
	var recs []FederationRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Federation, 0, len(recs))
	for i := range recs {
		out = append(out, federationToModel(&recs[i]))
	}
	return out, nil
}

func (r *FederationRepository) Update(ctx context.Context, rctx *model.RequestContext, fedUUID string, updates map[string]interface{}) (*model.Federation, error) {
	if err := rejectImmutable(updates, "uuid", "id", "project_id"); err != nil {
		return nil, err
	}
	var out *model.Federation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tenantScope(lockForUpdate(tx), rctx, r.trusteeDomainID)
		var rec FederationRecord
		if err := q.First(&rec, "uuid = ?", fedUUID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: federation %s", model.ErrNotFound, fedUUID)
			}
			return err
		}
		cols := normalizeUpdates(updates)
		cols["updated_at"] = time.Now().UTC()
		if err := tx.Model(&rec).Updates(cols).Error; err != nil {
			return err
		}
		out = federationToModel(&rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FederationRepository) Destroy(ctx context.Context, rctx *model.RequestContext, fedUUID string) error {
	q := tenantScope(r.db.WithContext(ctx), rctx, r.trusteeDomainID)
	res := q.Delete(&FederationRecord{}, "uuid = ?", fedUUID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: federation %s", model.ErrNotFound, fedUUID)
	}
	return nil
}

var _ domain.FederationRepository = (*FederationRepository)(nil)

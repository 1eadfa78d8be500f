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

// ClusterTemplateRepository is the gorm-backed implementation of
// domain.ClusterTemplateRepository.
type ClusterTemplateRepository struct {
	db              *gorm.DB
	trusteeDomainID string
}

func NewClusterTemplateRepository(db *gorm.DB, trusteeDomainID string) *ClusterTemplateRepository {
	return &ClusterTemplateRepository{db: db, trusteeDomainID: trusteeDomainID}
}

func templateToRecord(t *model.ClusterTemplate) *ClusterTemplateRecord {
	return &ClusterTemplateRecord{
		ID:                  t.ID,
		UUID:                t.UUID,
		ProjectID:           t.ProjectID,
		UserID:              t.UserID,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
		Name:                t.Name,
		ImageID:             t.ImageID,
		Flavor:              t.Flavor,
		MasterFlavor:        t.MasterFlavor,
		Keypair:             t.Keypair,
		DNSNameserver:       t.DNSNameserver,
		ExternalNetworkID:   t.ExternalNetworkID,
		FixedNetwork:        t.FixedNetwork,
		FixedSubnet:         t.FixedSubnet,
		NetworkDriver:       t.NetworkDriver,
		VolumeDriver:        t.VolumeDriver,
		DockerVolumeSize:    t.DockerVolumeSize,
		DockerStorageDriver: t.DockerStorageDriver,
		ClusterDistro:       t.ClusterDistro,
		COE:                 string(t.COE),
		ServerType:          string(t.ServerType),
		HTTPProxy:           t.HTTPProxy,
		HTTPSProxy:          t.HTTPSProxy,
		NoProxy:             t.NoProxy,
		RegistryEnabled:     t.RegistryEnabled,
		InsecureRegistry:    t.InsecureRegistry,
		Labels:              encodeJSON(t.Labels),
		TLSDisabled:         t.TLSDisabled,
		Public:              t.Public,
		Hidden:              t.Hidden,
		MasterLBEnabled:     t.MasterLBEnabled,
		FloatingIPEnabled:   t.FloatingIPEnabled,
		Tags:                t.Tags,
		DriverName:          t.DriverName,
	}
}

func templateToModel(r *ClusterTemplateRecord) *model.ClusterTemplate {
	return &model.ClusterTemplate{
		ID:                  r.ID,
		UUID:                r.UUID,
		ProjectID:           r.ProjectID,
		UserID:              r.UserID,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		Name:                r.Name,
		ImageID:             r.ImageID,
		Flavor:              r.Flavor,
		MasterFlavor:        r.MasterFlavor,
		Keypair:             r.Keypair,
		DNSNameserver:       r.DNSNameserver,
		ExternalNetworkID:   r.ExternalNetworkID,
		FixedNetwork:        r.FixedNetwork,
		FixedSubnet:         r.FixedSubnet,
		NetworkDriver:       r.NetworkDriver,
		VolumeDriver:        r.VolumeDriver,
		DockerVolumeSize:    r.DockerVolumeSize,
		DockerStorageDriver: r.DockerStorageDriver,
		ClusterDistro:       r.ClusterDistro,
		COE:                 model.COE(r.COE),
		ServerType:          model.ServerType(r.ServerType),
		HTTPProxy:           r.HTTPProxy,
		HTTPSProxy:          r.HTTPSProxy,
		NoProxy:             r.NoProxy,
		RegistryEnabled:     r.RegistryEnabled,
		InsecureRegistry:    r.InsecureRegistry,
		Labels:              decodeMap(r.Labels),
		TLSDisabled:         r.TLSDisabled,
		Public:              r.Public,
		Hidden:              r.Hidden,
		MasterLBEnabled:     r.MasterLBEnabled,
		FloatingIPEnabled:   r.FloatingIPEnabled,
		Tags:                r.Tags,
		DriverName:          r.DriverName,
	}
}

var templateSortKeys = map[string]bool{
	"created_at": true, "updated_at": true, "name": true, "coe": true, "uuid": true,
}

var templateFilterKeys = map[string]bool{
	"name": true, "coe": true, "server_type": true, "cluster_distro": true, "project_id": true, "public": true,
}

// templateScope is tenant scoping plus public visibility: everyone can read
// public non-hidden templates.
func (r *ClusterTemplateRepository) templateScope(q *gorm.DB, rctx *model.RequestContext) *gorm.DB {
	if rctx == nil || (rctx.IsAdmin && rctx.AllTenants) {
		return q
	}
	pid := rctx.EffectiveProjectID(r.trusteeDomainID)
	return q.Where("project_id = ? OR (public = ? AND hidden = ?)", pid, true, false)
}

func (r *ClusterTemplateRepository) Create(ctx context.Context, rctx *model.RequestContext, t *model.ClusterTemplate) error {
	rec := templateToRecord(t)
	if rec.UUID == "" {
		rec.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: cluster template %s", model.ErrAlreadyExists, rec.UUID)
		}
		return err
	}
	*t = *templateToModel(rec)
	return nil
}

func (r *ClusterTemplateRepository) Get(ctx context.Context, rctx *model.RequestContext, ident string) (*model.ClusterTemplate, error) {
	q := r.templateScope(r.db.WithContext(ctx), rctx)
	var rec ClusterTemplateRecord
	err := q.First(&rec, "uuid = ?", ident).Error
	if err == nil {
		return templateToModel(&rec), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	var recs []ClusterTemplateRecord
	q = r.templateScope(r.db.WithContext(ctx), rctx)
	if err := q.Limit(2).Find(&recs, "name = ?", ident).Error; err != nil {
		return nil, err
	}
	switch len(recs) {
	case 0:
		return nil, fmt.Errorf("%w: cluster template %s", model.ErrNotFound, ident)
	case 1:
		return templateToModel(&recs[0]), nil
	default:
		return nil, fmt.Errorf("%w: multiple cluster templates named %s", model.ErrConflict, ident)
	}
}

func (r *ClusterTemplateRepository) List(ctx context.Context, rctx *model.RequestContext, opts domain.ListOpts) ([]*model.ClusterTemplate, error) {
	q := r.templateScope(r.db.WithContext(ctx).Model(&ClusterTemplateRecord{}), rctx)
	q, err := applyFilters(q, opts.Filters, templateFilterKeys)
	if err != nil {
		return nil, err
	}
	var mk *keyset
	if opts.Marker != "" {
		var row ClusterTemplateRecord
		if err := r.db.WithContext(ctx).First(&row, "uuid = ?", opts.Marker).Error; err != nil {
			return nil, fmt.Errorf("%w: marker %s", model.ErrNotFound, opts.Marker)
		}
		mk = &keyset{sortVal: templateSortValue(&row, opts.SortKey), id: row.ID}
	}
	q, err = applyListOpts(q, opts, templateSortKeys, mk)
	if err != nil {
		return nil, err
	}
	var recs []ClusterTemplateRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.ClusterTemplate, 0, len(recs))
	for i := range recs {
		out = append(out, templateToModel(&recs[i]))
	}
	return out, nil
}

func templateSortValue(r *ClusterTemplateRecord, key string) interface{} {
	switch key {
	case "updated_at":
		return r.UpdatedAt
	case "name":
		return r.Name
	case "coe":
		return r.COE
	case "uuid":
		return r.UUID
	default:
		return r.CreatedAt
	}
}

func (r *ClusterTemplateRepository) Update(ctx context.Context, rctx *model.RequestContext, templateUUID string, updates map[string]interface{}) (*model.ClusterTemplate, error) {
	if err := rejectImmutable(updates, "uuid", "id", "project_id", "user_id"); err != nil {
		return nil, err
	}
	var out *model.ClusterTemplate
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tenantScope(lockForUpdate(tx), rctx, r.trusteeDomainID)
		var rec ClusterTemplateRecord
		if err := q.First(&rec, "uuid = ?", templateUUID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: cluster template %s", model.ErrNotFound, templateUUID)
			}
			return err
		}
		cols := normalizeUpdates(updates)
		cols["updated_at"] = time.Now().UTC()
		if err := tx.Model(&rec).Updates(cols).Error; err != nil {
			return err
		}
		out = templateToModel(&rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ClusterTemplateRepository) Destroy(ctx context.Context, rctx *model.RequestContext, templateUUID string) error {
	q := tenantScope(r.db.WithContext(ctx), rctx, r.trusteeDomainID)
	res := q.Delete(&ClusterTemplateRecord{}, "uuid = ?", templateUUID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: cluster template %s", model.ErrNotFound, templateUUID)
	}
	return nil
}

var _ domain.ClusterTemplateRepository = (*ClusterTemplateRepository)(nil)

package rdb

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

// ServiceHeartbeatRepository tracks conductor liveness rows.
type ServiceHeartbeatRepository struct {
	db *gorm.DB
}

func NewServiceHeartbeatRepository(db *gorm.DB) *ServiceHeartbeatRepository {
	return &ServiceHeartbeatRepository{db: db}
}

func heartbeatToModel(r *ServiceHeartbeatRecord) *model.ServiceHeartbeat {
	return &model.ServiceHeartbeat{
		ID:             r.ID,
		Host:           r.Host,
		Binary:         r.Binary,
		Disabled:       r.Disabled,
		DisabledReason: r.DisabledReason,
		LastSeenUp:     r.LastSeenUp,
		ForcedDown:     r.ForcedDown,
		ReportCount:    r.ReportCount,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// Touch advances last_seen_up and report_count for (host, binary), creating
// the row on first sight.
func (r *ServiceHeartbeatRepository) Touch(ctx context.Context, host, binary string) (*model.ServiceHeartbeat, error) {
	var out *model.ServiceHeartbeat
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		var rec ServiceHeartbeatRecord
		err := lockForUpdate(tx).First(&rec, "host = ? AND binary = ?", host, binary).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = ServiceHeartbeatRecord{
				Host: host, Binary: binary,
				LastSeenUp: now, ReportCount: 1,
				CreatedAt: now, UpdatedAt: now,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			rec.LastSeenUp = now
			rec.ReportCount++
			rec.UpdatedAt = now
			if err := tx.Save(&rec).Error; err != nil {
				return err
			}
		}
		out = heartbeatToModel(&rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ServiceHeartbeatRepository) List(ctx context.Context) ([]*model.ServiceHeartbeat, error) {
	var recs []ServiceHeartbeatRecord
	if err := r.db.WithContext(ctx).Order("host ASC, binary ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.ServiceHeartbeat, 0, len(recs))
	for i := range recs {
		out = append(out, heartbeatToModel(&recs[i]))
	}
	return out, nil
}

var _ domain.ServiceHeartbeatRepository = (*ServiceHeartbeatRepository)(nil)

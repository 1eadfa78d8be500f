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

// X509KeyPairRepository backs the db-backed certificate store.
type X509KeyPairRepository struct {
	db              *gorm.DB
	trusteeDomainID string
}

func NewX509KeyPairRepository(db *gorm.DB, trusteeDomainID string) *X509KeyPairRepository {
	return &X509KeyPairRepository{db: db, trusteeDomainID: trusteeDomainID}
}

func keyPairToRecord(kp *model.X509KeyPair) *X509KeyPairRecord {
	return &X509KeyPairRecord{
		ID:                   kp.ID,
		UUID:                 kp.UUID,
		ProjectID:            kp.ProjectID,
		UserID:               kp.UserID,
		CreatedAt:            kp.CreatedAt,
		UpdatedAt:            kp.UpdatedAt,
		Name:                 kp.Name,
		Certificate:          kp.Certificate,
		Intermediates:        kp.Intermediates,
		PrivateKey:           kp.PrivateKey,
		PrivateKeyPassphrase: kp.PrivateKeyPassphrase,
	}
}

func keyPairToModel(r *X509KeyPairRecord) *model.X509KeyPair {
	return &model.X509KeyPair{
		ID:                   r.ID,
		UUID:                 r.UUID,
		ProjectID:            r.ProjectID,
		UserID:               r.UserID,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
		Name:                 r.Name,
		Certificate:          r.Certificate,
		Intermediates:        r.Intermediates,
		PrivateKey:           r.PrivateKey,
		PrivateKeyPassphrase: r.PrivateKeyPassphrase,
	}
}

func (r *X509KeyPairRepository) Create(ctx context.Context, rctx *model.RequestContext, kp *model.X509KeyPair) error {
	rec := keyPairToRecord(kp)
	if rec.UUID == "" {
		rec.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return err
	}
	*kp = *keyPairToModel(rec)
	return nil
}

func (r *X509KeyPairRepository) Get(ctx context.Context, rctx *model.RequestContext, kpUUID string) (*model.X509KeyPair, error) {
	q := tenantScope(r.db.WithContext(ctx), rctx, r.trusteeDomainID)
	var rec X509KeyPairRecord
	if err := q.First(&rec, "uuid = ?", kpUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: x509keypair %s", model.ErrNotFound, kpUUID)
		}
		return nil, err
	}
	return keyPairToModel(&rec), nil
}

func (r *X509KeyPairRepository) Destroy(ctx context.Context, rctx *model.RequestContext, kpUUID string) error {
	q := tenantScope(r.db.WithContext(ctx), rctx, r.trusteeDomainID)
	res := q.Delete(&X509KeyPairRecord{}, "uuid = ?", kpUUID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: x509keypair %s", model.ErrNotFound, kpUUID)
	}
	return nil
}

var _ domain.X509KeyPairRepository = (*X509KeyPairRepository)(nil)

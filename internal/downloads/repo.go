package downloads

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a downloads repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByOrderProduct(ctx context.Context, orderID, productID uuid.UUID) (*models.DigitalDownload, error) {
	var grant models.DigitalDownload
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *repository) FindByToken(ctx context.Context, token uuid.UUID) (*models.DigitalDownload, error) {
	var grant models.DigitalDownload
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *repository) Create(ctx context.Context, grant *models.DigitalDownload) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *repository) IncrementCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.DigitalDownload{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}

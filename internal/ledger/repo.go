package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&seller).Error
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) ListItemsBySeller(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]models.OrderItem, error) {
	query := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Where("created_at < ?", to).
		Order("created_at ASC")
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	var items []models.OrderItem
	err := query.Find(&items).Error
	return items, err
}

func (r *repository) ListSucceededRefundsBySeller(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]models.Refund, error) {
	query := r.db.WithContext(ctx).
		Where("seller_id = ? AND status = ?", sellerID, enums.RefundStatusSucceeded).
		Where("resolved_at < ?", to).
		Order("resolved_at ASC")
	if !from.IsZero() {
		query = query.Where("resolved_at >= ?", from)
	}
	var refunds []models.Refund
	err := query.Find(&refunds).Error
	return refunds, err
}

func (r *repository) FindItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.OrderItem, error) {
	out := make(map[uuid.UUID]models.OrderItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (r *repository) FindOrderCreatedAts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	out := make(map[uuid.UUID]time.Time, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Select("id", "created_at").
		Where("id IN ?", ids).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		out[order.ID] = order.CreatedAt
	}
	return out, nil
}

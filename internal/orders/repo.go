package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindProductsForUpdate loads products with a row lock on dialects that
// support it. sqlite serializes writers anyway, so the lock is skipped there.
func (r *repository) FindProductsForUpdate(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("id IN ?", ids)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) FindSellers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Seller, error) {
	out := make(map[uuid.UUID]models.Seller, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var sellers []models.Seller
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&sellers).Error; err != nil {
		return nil, err
	}
	for _, s := range sellers {
		out[s.ID] = s
	}
	return out, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindPickupLocation(ctx context.Context, id uuid.UUID) (*models.PickupLocation, error) {
	var loc models.PickupLocation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&loc).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *repository) PaymentIntentExists(ctx context.Context, paymentIntentID string) (bool, error) {
	if paymentIntentID == "" {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_intent_id = ?", paymentIntentID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Create(order).Error
}

func (r *repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CountRefunds(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

func (r *repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{}).Error
}

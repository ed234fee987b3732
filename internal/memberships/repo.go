package memberships

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a memberships repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePlan(ctx context.Context, plan *models.MembershipPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) FindPlan(ctx context.Context, id uuid.UUID) (*models.MembershipPlan, error) {
	var plan models.MembershipPlan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) CreateMembership(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *repository) FindMembership(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	var membership models.Membership
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&membership).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *repository) FindActiveMembership(ctx context.Context, userID, planID uuid.UUID) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND plan_id = ? AND is_active = ?", userID, planID, true).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *repository) ListDue(ctx context.Context, asOf time.Time, limit int) ([]models.Membership, error) {
	var due []models.Membership
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND next_billing_date <= ?", true, asOf).
		Order("next_billing_date ASC").
		Limit(limit).
		Find(&due).Error
	return due, err
}

func (r *repository) UpdateMembership(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Create(order).Error
}

func (r *repository) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

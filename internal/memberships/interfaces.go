package memberships

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
)

// Repository defines persistence operations for plans and memberships.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePlan(ctx context.Context, plan *models.MembershipPlan) error
	FindPlan(ctx context.Context, id uuid.UUID) (*models.MembershipPlan, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	CreateMembership(ctx context.Context, membership *models.Membership) error
	FindMembership(ctx context.Context, id uuid.UUID) (*models.Membership, error)
	FindActiveMembership(ctx context.Context, userID, planID uuid.UUID) (*models.Membership, error)
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]models.Membership, error)
	UpdateMembership(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
}

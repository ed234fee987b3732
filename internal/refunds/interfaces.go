package refunds

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/internal/inventory"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// Repository defines persistence operations for refunds and the order rows
// they touch.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindRefund(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error)
	Create(ctx context.Context, refund *models.Refund) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.RefundStatus, updates map[string]any) (bool, error)
	ListByStatus(ctx context.Context, status enums.RefundStatus, params pagination.Params) ([]models.Refund, error)
	ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.Refund, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}

// StockRestorer puts stock back when the restore-on-refund policy is on.
type StockRestorer interface {
	Adjust(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (int, error)
}
